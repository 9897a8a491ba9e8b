package services

// ObjectStorage là nơi lưu file upload (Supabase Storage ở production, bản giả trong test)
type ObjectStorage interface {
	Upload(bucket, path string, data []byte, contentType string) (string, error)
	Delete(bucket, path string) error
}
