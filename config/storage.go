package config

import (
	"sync"
)

var (
	storageOnce   sync.Once
	storageConfig *StorageConfig
)

// StorageConfig selects the backend for uploads, results and transcripts.
type StorageConfig struct {
	Type     string
	LocalDir string
	Minio    MinioConfig
	S3       S3Config
}

type MinioConfig struct {
	AccessKey  string
	SecretKey  string
	Endpoint   string
	UseSSL     bool
	Region     string
	BucketName string
}

type S3Config struct {
	BucketName string
	Region     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
}

func GetStorageConfig() *StorageConfig {
	storageOnce.Do(func() {
		loadDotEnv()
		storageConfig = &StorageConfig{
			Type:     getEnv("STORAGE_TYPE", "local"),
			LocalDir: getEnv("LOCAL_STORAGE_DIR", "data"),
			Minio:    *GetMinioConfig(),
			S3:       *GetS3Config(),
		}
	})
	return storageConfig
}

func GetMinioConfig() *MinioConfig {
	loadDotEnv()
	return &MinioConfig{
		AccessKey:  getEnv("MINIO_ACCESS_KEY", ""),
		SecretKey:  getEnv("MINIO_SECRET_KEY", ""),
		Endpoint:   getEnv("MINIO_ENDPOINT", "localhost:9000"),
		UseSSL:     getEnvAsBool("MINIO_USE_SSL", false),
		Region:     getEnv("MINIO_REGION", ""),
		BucketName: getEnv("MINIO_BUCKET_NAME", "docfiler"),
	}
}

func GetS3Config() *S3Config {
	loadDotEnv()
	return &S3Config{
		BucketName: getEnv("AWS_S3_BUCKET_NAME", ""),
		Region:     getEnv("AWS_REGION", ""),
		Endpoint:   getEnv("AWS_ENDPOINT", ""),
		AccessKey:  getEnv("AWS_ACCESS_KEY", ""),
		SecretKey:  getEnv("AWS_SECRET_KEY", ""),
	}
}
