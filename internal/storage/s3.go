package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"lvdt_go/internal/config"
)

// S3Mirror replica as partes gravadas em um bucket, mantendo a hierarquia
// relativa à raiz local
type S3Mirror struct {
	client *minio.Client
	bucket string
	prefix string
	root   string
}

// NewS3Mirror cria o cliente minio. Não abre conexão.
func NewS3Mirror(cfg config.S3Config, root string) (*S3Mirror, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Key, cfg.Secret, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("erro ao criar cliente minio: %w", err)
	}
	return &S3Mirror{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		root:   filepath.Clean(root),
	}, nil
}

// ObjectKey converte um caminho local em chave do bucket
func (m *S3Mirror) ObjectKey(localPath string) (string, error) {
	rel, err := filepath.Rel(m.root, filepath.Clean(localPath))
	if err != nil {
		return "", err
	}
	if rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("caminho fora da raiz %s: %s", m.root, localPath)
	}
	return path.Join(m.prefix, filepath.ToSlash(rel)), nil
}

// Upload envia um arquivo local para o bucket
func (m *S3Mirror) Upload(ctx context.Context, localPath string) error {
	key, err := m.ObjectKey(localPath)
	if err != nil {
		return err
	}

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("erro ao abrir arquivo %s: %w", localPath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("erro ao obter informações de %s: %w", localPath, err)
	}

	_, err = m.client.PutObject(ctx, m.bucket, key, file, info.Size(), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("erro ao enviar %s para o bucket %s: %w", key, m.bucket, err)
	}
	return nil
}
