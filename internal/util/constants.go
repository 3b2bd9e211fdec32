package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

const (
	MimeText = "text/"
	MimeJSON = "application/json"
)

// MaxMaterialSize 单份学习资料上限 5MB
const MaxMaterialSize = 5 << 20
