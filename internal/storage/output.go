package storage

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/pbkdf2"
)

// Encrypted outputs are framed as magic(8) + salt(16) + nonce(12) + ciphertext+tag.
const outputMagic = "PFGCMv01"

const pbkdf2Iterations = 100000

// OutputStore keeps assembled documents in an S3 bucket, encrypted at
// rest with a password-derived key. A password of "" stores plaintext.
type OutputStore struct {
	client *s3.Client
	bucket string
}

// NewOutputStore creates an output store backed by the given bucket.
func NewOutputStore(ctx context.Context, bucket string) (*OutputStore, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &OutputStore{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
	}, nil
}

// Put encrypts and uploads an assembled document under the given key.
func (o *OutputStore) Put(ctx context.Context, key string, data []byte, password string, meta map[string]string) error {
	body := data
	encrypted := password != ""
	if encrypted {
		var err error
		body, err = encryptGCM(data, password)
		if err != nil {
			return fmt.Errorf("failed to encrypt output: %w", err)
		}
	}

	s3Meta := map[string]string{
		"content-type": "application/pdf",
		"encrypted":    fmt.Sprintf("%t", encrypted),
	}
	for k, v := range meta {
		s3Meta[k] = v
	}

	_, err := o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(o.bucket),
		Key:      aws.String(key),
		Body:     bytes.NewReader(body),
		Metadata: s3Meta,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Info().Str("key", key).Bool("encrypted", encrypted).Int("size", len(body)).Msg("stored assembled output")
	return nil
}

// Get downloads and, when needed, decrypts a stored output.
func (o *OutputStore) Get(ctx context.Context, key, password string) ([]byte, error) {
	result, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object: %w", err)
	}

	if len(data) >= len(outputMagic) && string(data[:len(outputMagic)]) == outputMagic {
		plain, err := decryptGCM(data, password)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt output: %w", err)
		}
		return plain, nil
	}
	return data, nil
}

// Delete removes a stored output.
func (o *OutputStore) Delete(ctx context.Context, key string) error {
	_, err := o.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

func encryptGCM(data []byte, password string) ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, 32, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, data, nil)

	out := make([]byte, 0, len(outputMagic)+len(salt)+len(nonce)+len(sealed))
	out = append(out, outputMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

func decryptGCM(data []byte, password string) ([]byte, error) {
	// magic(8) + salt(16) + nonce(12) + ciphertext + tag(16)
	if len(data) < 8+16+12+16 {
		return nil, fmt.Errorf("encrypted data too short: %d bytes", len(data))
	}

	salt := data[8:24]
	nonce := data[24:36]
	ciphertext := data[36:]

	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, 32, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("GCM decryption failed: %w", err)
	}
	return plain, nil
}
