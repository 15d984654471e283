package config

import (
	"strings"
	"time"
)

// StorageConfig holds the byte-storage backend settings.
type StorageConfig struct {
	Driver        string        `json:"driver"` // minio, s3
	Bucket        string        `json:"bucket"`
	BucketTest    string        `json:"bucket_test"`
	Timeout       time.Duration `json:"timeout"`        // upper bound for every backend call
	SignedURLTTL  time.Duration `json:"signed_url_ttl"` // validity of download links
	PublicBaseURL string        `json:"public_base_url"`
	Minio         MinioConfig   `json:"minio"`
	S3            S3Config      `json:"s3"`
}

// MinioConfig describes a MinIO endpoint.
type MinioConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	UseSSL   bool   `json:"use_ssl"`
	Region   string `json:"region"`
}

// S3Config describes an S3-compatible endpoint.
type S3Config struct {
	Region       string `json:"region"`
	Endpoint     string `json:"endpoint"` // empty for AWS
	AccessKey    string `json:"access_key"`
	SecretKey    string `json:"secret_key"`
	UsePathStyle bool   `json:"use_path_style"`
}

// InitStorageConfig reads the storage section from the environment.
func InitStorageConfig() StorageConfig {
	bucketTest := getEnv("BUCKET_NAME_TEST", "")
	if bucketTest == "" {
		bucketTest = getEnv("BUCKET_NAMETEST", "pastebox-test")
	}
	return StorageConfig{
		Driver:        strings.ToLower(getEnv("STORAGE_DRIVER", "minio")),
		Bucket:        getEnv("BUCKET_NAME", "pastebox-files"),
		BucketTest:    bucketTest,
		Timeout:       getEnvDuration("STORAGE_TIMEOUT", 15*time.Second),
		SignedURLTTL:  getEnvDuration("SIGNED_URL_TTL", time.Hour),
		PublicBaseURL: strings.TrimRight(getEnv("STORAGE_PUBLIC_BASE_URL", ""), "/"),
		Minio: MinioConfig{
			Host:     getEnv("MINIO_HOST", "localhost"),
			Port:     getEnv("MINIO_PORT", "9000"),
			Username: getEnv("MINIO_USERNAME", "minioadmin"),
			Password: getEnv("MINIO_PASSWORD", "minioadmin"),
			UseSSL:   getEnvBool("MINIO_USE_SSL", false),
			Region:   getEnv("MINIO_REGION", "us-east-1"),
		},
		S3: S3Config{
			Region:       getEnv("S3_REGION", "us-east-1"),
			Endpoint:     getEnv("S3_ENDPOINT", ""),
			AccessKey:    getEnv("S3_ACCESS_KEY", ""),
			SecretKey:    getEnv("S3_SECRET_KEY", ""),
			UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", false),
		},
	}
}
