package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/vnkhanh/e-learning-backend/utils"
)

type UploadKind string

const (
	UploadThumbnail UploadKind = "thumbnail"
	UploadVideo     UploadKind = "video"
	UploadMaterial  UploadKind = "material"
)

const (
	maxThumbnailBytes = 5 << 20
	maxVideoBytes     = 500 << 20
	maxMaterialBytes  = 50 << 20
)

var ErrStorageUnavailable = errors.New("object storage is not configured")

type Buckets struct {
	Thumbnails string
	Videos     string
	Materials  string
}

func (b Buckets) withDefaults() Buckets {
	if b.Thumbnails == "" {
		b.Thumbnails = "course-thumbnails"
	}
	if b.Videos == "" {
		b.Videos = "lesson-videos"
	}
	if b.Materials == "" {
		b.Materials = "lesson-materials"
	}
	return b
}

type UploadResult struct {
	Kind   UploadKind `json:"kind"`
	Bucket string     `json:"bucket"`
	Path   string     `json:"path"`
	URL    string     `json:"url"`
	Name   string     `json:"name"`
	Size   int        `json:"size"`
}

// UploadService đẩy file của admin lên object storage và trả public URL
type UploadService struct {
	storage ObjectStorage
	buckets Buckets
	log     *utils.Logger
}

func NewUploadService(storage ObjectStorage, buckets Buckets, log *utils.Logger) *UploadService {
	return &UploadService{storage: storage, buckets: buckets.withDefaults(), log: log.With("service", "UploadService")}
}

func (s *UploadService) Upload(ctx context.Context, sess Session, kind UploadKind, filename, contentType string, data []byte) (*UploadResult, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	if len(data) == 0 {
		return nil, invalidArg("file is empty")
	}

	bucket, limit, err := s.target(kind, contentType)
	if err != nil {
		return nil, err
	}
	if len(data) > limit {
		return nil, invalidArg("file exceeds %d MB", limit>>20)
	}

	path := objectPath(filename)
	url, err := s.storage.Upload(bucket, path, data, contentType)
	if err != nil {
		s.log.Error("upload failed", "bucket", bucket, "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	s.log.Info("file uploaded", "bucket", bucket, "path", path, "size", len(data))
	return &UploadResult{Kind: kind, Bucket: bucket, Path: path, URL: url, Name: filename, Size: len(data)}, nil
}

// Remove xóa object theo public URL; URL không thuộc storage thì bỏ qua
func (s *UploadService) Remove(ctx context.Context, sess Session, publicURL string) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}
	if s.storage == nil {
		return ErrStorageUnavailable
	}
	bucket, path, err := utils.ParseObjectURL(publicURL)
	if err != nil {
		return invalidArg("%v", err)
	}
	if err := s.storage.Delete(bucket, path); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return nil
}

func (s *UploadService) target(kind UploadKind, contentType string) (string, int, error) {
	switch kind {
	case UploadThumbnail:
		if !strings.HasPrefix(contentType, "image/") {
			return "", 0, invalidArg("thumbnail must be an image")
		}
		return s.buckets.Thumbnails, maxThumbnailBytes, nil
	case UploadVideo:
		if !strings.HasPrefix(contentType, "video/") {
			return "", 0, invalidArg("video must have a video/* content type")
		}
		return s.buckets.Videos, maxVideoBytes, nil
	case UploadMaterial:
		return s.buckets.Materials, maxMaterialBytes, nil
	}
	return "", 0, invalidArg("unknown upload kind %q", kind)
}

// objectPath: <slug tên file>-<8 ký tự uuid><ext>
func objectPath(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := slug.Make(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("%s-%s%s", base, uuid.NewString()[:8], ext)
}
