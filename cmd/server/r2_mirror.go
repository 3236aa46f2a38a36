package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"terragen.ai/internal/persistence/r2s3"
)

// buildSnapshotMirror returns nil unless TG_R2_MIRROR is set.
func buildSnapshotMirror(dataDir string, logger *log.Logger) (*r2s3.Mirror, error) {
	if !envBool("TG_R2_MIRROR", false) {
		return nil, nil
	}
	opts := r2s3.Options{
		Endpoint:        strings.TrimSpace(os.Getenv("TG_R2_ENDPOINT")),
		Bucket:          strings.TrimSpace(os.Getenv("TG_R2_BUCKET")),
		Region:          strings.TrimSpace(os.Getenv("TG_R2_REGION")),
		AccessKeyID:     strings.TrimSpace(os.Getenv("TG_R2_ACCESS_KEY_ID")),
		SecretAccessKey: strings.TrimSpace(os.Getenv("TG_R2_SECRET_ACCESS_KEY")),
	}
	if opts.Endpoint == "" || opts.Bucket == "" || opts.AccessKeyID == "" || opts.SecretAccessKey == "" {
		return nil, fmt.Errorf("TG_R2_MIRROR=true but TG_R2_ENDPOINT/TG_R2_BUCKET/TG_R2_ACCESS_KEY_ID/TG_R2_SECRET_ACCESS_KEY are not fully set")
	}
	client, err := r2s3.New(opts)
	if err != nil {
		return nil, err
	}
	return r2s3.NewMirror(client, dataDir, r2s3.MirrorOptions{
		Prefix:  strings.TrimSpace(os.Getenv("TG_R2_PREFIX")),
		Workers: envInt("TG_R2_UPLOAD_WORKERS", 2),
	}, logger), nil
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
