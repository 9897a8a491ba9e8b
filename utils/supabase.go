package utils

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

// SupabaseStorage bọc Supabase Storage client, trả public URL sau khi upload
type SupabaseStorage struct {
	baseURL string
	client  *storage.Client
}

func NewSupabaseStorage(supabaseURL, supabaseKey string) (*SupabaseStorage, error) {
	if supabaseURL == "" || supabaseKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL hoặc SUPABASE_KEY chưa cấu hình")
	}
	base := strings.TrimRight(supabaseURL, "/")
	return &SupabaseStorage{
		baseURL: base,
		client:  storage.NewClient(base+"/storage/v1", supabaseKey, nil),
	}, nil
}

// Upload ghi đè nếu object đã tồn tại
func (s *SupabaseStorage) Upload(bucket, path string, data []byte, contentType string) (string, error) {
	upsert := true
	options := storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}
	if _, err := s.client.UploadFile(bucket, path, bytes.NewReader(data), options); err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, path, err)
	}
	return PublicObjectURL(s.baseURL, bucket, path), nil
}

func (s *SupabaseStorage) Delete(bucket, path string) error {
	if _, err := s.client.RemoveFile(bucket, []string{path}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, path, err)
	}
	return nil
}

func PublicObjectURL(baseURL, bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", strings.TrimRight(baseURL, "/"), bucket, path)
}

// ParseObjectURL tách bucket và object path từ public URL dạng ".../storage/v1/object/public/<bucket>/<path>"
func ParseObjectURL(publicURL string) (bucket, path string, err error) {
	idx := strings.Index(publicURL, "/storage/v1/object/")
	if idx == -1 {
		return "", "", fmt.Errorf("không xác định được đường dẫn object trong URL: %s", publicURL)
	}
	rest := publicURL[idx+len("/storage/v1/object/"):]
	rest = strings.TrimPrefix(rest, "public/")

	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("không parse được bucket/object từ URL: %s", publicURL)
	}
	object := parts[1]
	if q := strings.Index(object, "?"); q != -1 {
		object = object[:q]
	}
	if u, err := url.PathUnescape(object); err == nil {
		object = u
	}
	return parts[0], object, nil
}
