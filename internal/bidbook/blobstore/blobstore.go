// Пакет предоставляет интерфейс и реализации blob-хранилища вложений ячеек:
// локальный каталог и Minio. Блобы адресуются uuid, владелец (ячейка таблицы)
// хранится в метаданных объекта и служит ключом выборки при удалении ячейки.
package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const uploadTries = 3

const metaOwnerKey = "owner"

// BlobRecord - сведения о сохраненном блобе.
type BlobRecord struct {
	ID          uuid.UUID
	Owner       uuid.UUID
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

type BlobStore interface {
	Create(data []byte, contentType string, owner uuid.UUID) (uuid.UUID, error)
	Load(id uuid.UUID) ([]byte, error)
	LoadReader(id uuid.UUID) (io.ReadCloser, error)
	GetByOwner(owner uuid.UUID) ([]BlobRecord, error)
	Delete(id uuid.UUID) error
	Exist(id uuid.UUID) (bool, error)
}

// LocalStorage - плоский каталог: блоб в файле <uuid>, метаданные рядом
// в <uuid>.meta.
type LocalStorage struct {
	rootDir string
}

type localMeta struct {
	Owner       string    `json:"owner"`
	ContentType string    `json:"contentType"`
	CreatedAt   time.Time `json:"createdAt"`
}

func NewLocalStorage(rootDir string) (BlobStore, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, err
	}
	return &LocalStorage{rootDir}, nil
}

func (s *LocalStorage) Create(data []byte, contentType string, owner uuid.UUID) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	if err := os.WriteFile(filepath.Join(s.rootDir, id.String()), data, 0644); err != nil {
		return uuid.Nil, err
	}
	meta, _ := json.Marshal(localMeta{
		Owner:       owner.String(),
		ContentType: contentType,
		CreatedAt:   time.Now(),
	})
	if err := os.WriteFile(filepath.Join(s.rootDir, id.String()+".meta"), meta, 0644); err != nil {
		os.Remove(filepath.Join(s.rootDir, id.String()))
		return uuid.Nil, err
	}
	return id, nil
}

func (s *LocalStorage) Load(id uuid.UUID) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.rootDir, id.String()))
}

func (s *LocalStorage) LoadReader(id uuid.UUID) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.rootDir, id.String()))
}

func (s *LocalStorage) GetByOwner(owner uuid.UUID) ([]BlobRecord, error) {
	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		return nil, err
	}
	var res []BlobRecord
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".meta")
		if !ok {
			continue
		}
		id, err := uuid.FromString(name)
		if err != nil {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.rootDir, e.Name()))
		if err != nil {
			continue
		}
		var meta localMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			slog.Warn("broken blob meta file", "file", e.Name(), "err", err)
			continue
		}
		if meta.Owner != owner.String() {
			continue
		}
		stat, err := os.Stat(filepath.Join(s.rootDir, name))
		if err != nil {
			continue
		}
		res = append(res, BlobRecord{
			ID:          id,
			Owner:       owner,
			ContentType: meta.ContentType,
			Size:        stat.Size(),
			CreatedAt:   meta.CreatedAt,
		})
	}
	return res, nil
}

func (s *LocalStorage) Delete(id uuid.UUID) error {
	if err := os.Remove(filepath.Join(s.rootDir, id.String())); err != nil {
		return err
	}
	os.Remove(filepath.Join(s.rootDir, id.String()+".meta"))
	return nil
}

func (s *LocalStorage) Exist(id uuid.UUID) (bool, error) {
	_, err := os.Stat(filepath.Join(s.rootDir, id.String()))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type MinioStorage struct {
	client     *minio.Client
	bucketName string
}

func NewMinioStorage(endpoint string, accessKeyID string, secretAccessKey string, useSSL bool, bucketName string) (BlobStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinioStorage{client, bucketName}, nil
}

func (s *MinioStorage) Create(data []byte, contentType string, owner uuid.UUID) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}

	putOptions := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{metaOwnerKey: owner.String()},
	}

	for i := range uploadTries {
		_, err = s.client.PutObject(context.Background(),
			s.bucketName,
			id.String(),
			bytes.NewReader(data),
			int64(len(data)),
			putOptions,
		)
		if err != nil {
			resp := minio.ToErrorResponse(err)
			slog.Error("upload blob to minio", "id", id, "try", i+1, "code", resp.StatusCode, "msg", resp.Message)
			time.Sleep(time.Second)
			continue
		}
		break
	}
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (s *MinioStorage) Load(id uuid.UUID) ([]byte, error) {
	obj, err := s.LoadReader(id)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	return io.ReadAll(obj)
}

func (s *MinioStorage) LoadReader(id uuid.UUID) (io.ReadCloser, error) {
	return s.client.GetObject(context.Background(),
		s.bucketName,
		id.String(),
		minio.GetObjectOptions{},
	)
}

func (s *MinioStorage) GetByOwner(owner uuid.UUID) ([]BlobRecord, error) {
	var res []BlobRecord
	for obj := range s.client.ListObjects(context.Background(), s.bucketName, minio.ListObjectsOptions{
		Recursive:    true,
		WithMetadata: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if objectOwner(obj) != owner.String() {
			continue
		}
		id, err := uuid.FromString(obj.Key)
		if err != nil {
			continue
		}
		res = append(res, BlobRecord{
			ID:          id,
			Owner:       owner,
			ContentType: obj.ContentType,
			Size:        obj.Size,
			CreatedAt:   obj.LastModified,
		})
	}
	return res, nil
}

// objectOwner достает владельца из пользовательских метаданных листинга.
// S3-совместимые бэкенды отдают ключ с префиксом X-Amz-Meta-.
func objectOwner(obj minio.ObjectInfo) string {
	for k, v := range obj.UserMetadata {
		if strings.EqualFold(k, metaOwnerKey) || strings.EqualFold(k, "X-Amz-Meta-"+metaOwnerKey) {
			return v
		}
	}
	return ""
}

func (s *MinioStorage) Delete(id uuid.UUID) error {
	return s.client.RemoveObject(
		context.Background(),
		s.bucketName,
		id.String(),
		minio.RemoveObjectOptions{},
	)
}

func (s *MinioStorage) Exist(id uuid.UUID) (bool, error) {
	_, err := s.client.StatObject(
		context.Background(),
		s.bucketName,
		id.String(),
		minio.StatObjectOptions{},
	)
	if err != nil {
		errResponse := minio.ToErrorResponse(err)
		if errResponse.Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
