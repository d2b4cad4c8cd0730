package myaudio

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cardoc/cardoc-go/internal/errors"
)

// audioFormat is one whitelisted container.
type audioFormat struct {
	contentType string
	extensions  []string
	decoder     decoderKind
}

type decoderKind int

const (
	decoderWAV decoderKind = iota
	decoderFLAC
	decoderExternal
)

// supportedFormats is the upload whitelist, in reporting order.
var supportedFormats = []audioFormat{
	{"audio/wav", []string{".wav"}, decoderWAV},
	{"audio/mpeg", []string{".mp3"}, decoderExternal},
	{"audio/mp4", []string{".m4a"}, decoderExternal},
	{"audio/x-m4a", []string{".m4a"}, decoderExternal},
	{"audio/ogg", []string{".ogg"}, decoderExternal},
	{"audio/flac", []string{".flac"}, decoderFLAC},
}

// SupportedContentTypes lists the accepted audio content types.
func SupportedContentTypes() []string {
	out := make([]string, len(supportedFormats))
	for i, f := range supportedFormats {
		out[i] = f.contentType
	}
	return out
}

func lookupFormat(contentType string) (audioFormat, bool) {
	ct := normalizeContentType(contentType)
	for _, f := range supportedFormats {
		if f.contentType == ct {
			return f, true
		}
	}
	return audioFormat{}, false
}

// normalizeContentType drops parameters such as "; codecs=opus" and
// lower-cases the media type.
func normalizeContentType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// ValidateFormat checks the declared content type and file name before any
// decoding. An empty filename skips the extension check.
func ValidateFormat(contentType, filename string) error {
	ct := normalizeContentType(contentType)
	if !strings.HasPrefix(ct, "audio/") {
		return validationError(MsgNotAudio, contentType, filename)
	}

	format, ok := lookupFormat(ct)
	if !ok {
		msg := fmt.Sprintf("Unsupported audio format. Supported formats: [%s]",
			strings.Join(quoted(SupportedContentTypes()), ", "))
		return validationError(msg, contentType, filename)
	}

	if filename == "" {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range format.extensions {
		if ext == allowed {
			return nil
		}
	}
	msg := fmt.Sprintf("File extension %s doesn't match content type %s", ext, contentType)
	return validationError(msg, contentType, filename)
}

// ContentTypeForFile returns the whitelisted content type for the file's
// extension, or "" when the extension is not supported.
func ContentTypeForFile(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range supportedFormats {
		if slices.Contains(f.extensions, ext) {
			return f.contentType
		}
	}
	return ""
}

func validationError(msg, contentType, filename string) error {
	return errors.New(errors.NewStd(msg)).
		Component("myaudio").
		Category(errors.CategoryValidation).
		Context("content_type", contentType).
		FileContext(filename, 0).
		Build()
}

func quoted(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = "'" + s + "'"
	}
	return out
}
