package backup

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	helperOSS "attendance_backend/internals/helpers/oss"
)

// Putter menyimpan satu object dan mengembalikan lokasinya (URL atau path).
type Putter interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// OSSPutter: upload ke Aliyun OSS.
type OSSPutter struct {
	Svc *helperOSS.OSSService
}

func (p *OSSPutter) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	key = p.Svc.ObjectKey(key)
	if err := p.Svc.UploadStream(ctx, key, bytes.NewReader(body), contentType); err != nil {
		return "", fmt.Errorf("oss put %s: %w", key, err)
	}
	if u := p.Svc.PublicURL(key); u != "" {
		return u, nil
	}
	return key, nil
}

// DirPutter: fallback lokal kalau OSS tidak dikonfigurasi.
type DirPutter struct {
	Dir string
}

func (p *DirPutter) Put(ctx context.Context, key string, body []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(p.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	// tulis ke tmp lalu rename supaya file tidak pernah setengah jadi
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	return path, nil
}

// NewPutterFromEnv: OSS kalau ALI_OSS_* lengkap, selain itu direktori lokal.
func NewPutterFromEnv(dir string) Putter {
	if helperOSS.OSSConfigured() {
		svc, err := helperOSS.NewOSSServiceFromEnv("archives")
		if err == nil {
			log.Printf("[ARCHIVE] target: oss bucket=%s", svc.BucketName)
			return &OSSPutter{Svc: svc}
		}
		log.Printf("[ARCHIVE] OSS init gagal (%v), fallback ke %s", err, dir)
	}
	log.Printf("[ARCHIVE] target: dir %s", dir)
	return &DirPutter{Dir: dir}
}
