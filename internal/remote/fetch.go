package remote

import (
    "context"
    "fmt"
    "io"
    "net/http"
    "os"
    "path/filepath"
    "strings"

    awscfg "github.com/aws/aws-sdk-go-v2/config"
    "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
    "github.com/aws/aws-sdk-go-v2/service/s3"
    "github.com/rs/zerolog/log"
)

// Resolve turns a source reference into a local filesystem path.
// Supports file://path, absolute/relative paths, http(s):// URLs and
// s3://bucket/key (both downloaded to temp). cleanup removes any temp
// file created and is never nil.
func Resolve(ctx context.Context, ref string) (localPath string, cleanup func(), err error) {
    // Strip optional #page fragment if present
    if i := strings.Index(ref, "#"); i >= 0 {
        ref = ref[:i]
    }

    cleanup = func() {}
    switch {
    case strings.HasPrefix(ref, "s3://"):
        localPath, err = downloadS3ToTemp(ctx, ref)
    case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
        localPath, err = downloadHTTPToTemp(ctx, ref)
    case strings.HasPrefix(ref, "file://"):
        return strings.TrimPrefix(ref, "file://"), cleanup, nil
    default:
        // treat as filesystem path
        return ref, cleanup, nil
    }
    if err != nil {
        return "", cleanup, err
    }
    tmp := localPath
    return localPath, func() { _ = os.Remove(tmp) }, nil
}

func downloadHTTPToTemp(ctx context.Context, url string) (string, error) {
    req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
    resp, err := http.DefaultClient.Do(req)
    if err != nil { return "", err }
    defer resp.Body.Close()
    if resp.StatusCode != 200 { return "", fmt.Errorf("http %d", resp.StatusCode) }
    f, err := os.CreateTemp("", "pfdl-*.pdf")
    if err != nil { return "", err }
    defer f.Close()
    if _, err := io.Copy(f, resp.Body); err != nil { return "", err }
    return f.Name(), nil
}

func downloadS3ToTemp(ctx context.Context, s3url string) (string, error) {
    bucket, key, err := splitS3URL(s3url)
    if err != nil { return "", err }

    cfg, err := awscfg.LoadDefaultConfig(ctx)
    if err != nil { return "", err }
    cli := s3.NewFromConfig(cfg)
    dl := manager.NewDownloader(cli)

    // Ensure .pdf extension for downstream expectations
    f, err := os.CreateTemp("", "pfs3-*.pdf")
    if err != nil { return "", err }
    defer f.Close()
    if _, err := dl.Download(ctx, f, &s3.GetObjectInput{Bucket: &bucket, Key: &key}); err != nil {
        os.Remove(f.Name())
        return "", err
    }
    log.Info().Str("bucket", bucket).Str("key", key).Str("file", filepath.Base(f.Name())).Msg("downloaded s3 source to temp")
    return f.Name(), nil
}

// Upload pushes a local output file to s3://bucket/key.
func Upload(ctx context.Context, localPath, s3url string) error {
    bucket, key, err := splitS3URL(s3url)
    if err != nil { return err }

    f, err := os.Open(localPath)
    if err != nil { return err }
    defer f.Close()

    cfg, err := awscfg.LoadDefaultConfig(ctx)
    if err != nil { return err }
    up := manager.NewUploader(s3.NewFromConfig(cfg))
    if _, err := up.Upload(ctx, &s3.PutObjectInput{Bucket: &bucket, Key: &key, Body: f}); err != nil {
        return fmt.Errorf("upload to s3: %w", err)
    }
    log.Info().Str("bucket", bucket).Str("key", key).Msg("uploaded output to s3")
    return nil
}

func splitS3URL(s3url string) (bucket, key string, err error) {
    path := strings.TrimPrefix(s3url, "s3://")
    slash := strings.Index(path, "/")
    if slash <= 0 || slash == len(path)-1 {
        return "", "", fmt.Errorf("invalid s3 url: %s", s3url)
    }
    return path[:slash], path[slash+1:], nil
}
