package conf

// Cache backends
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Archive targets
const (
	ArchiveTargetLocal = "local"
	ArchiveTargetFTP   = "ftp"
	ArchiveTargetSFTP  = "sftp"
)

// envPrefix is prepended to every automatic environment binding.
const envPrefix = "CARDOC"
