// Package storage provides object storage for published page artifacts.
//
// The Storage interface is the only surface the rest of the system sees:
// keyed Put/Get/Exists/Delete with per-object content type and cache
// control. S3Storage implements it against S3-compatible backends
// (AWS S3, MinIO, and friends) via aws-sdk-go-v2.
//
//	store, err := storage.New(storage.Config{
//	    Bucket:    "public-pages",
//	    AccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
//	    SecretKey: os.Getenv("STORAGE_SECRET_KEY"),
//	})
//	err = store.Put(ctx, "jane-doe.html", bytes.NewReader(doc),
//	    storage.WithContentType("text/html; charset=utf-8"),
//	    storage.WithCacheControl("public, max-age=300"),
//	)
//
// Errors from the backend are normalized to package sentinels
// (ErrNotFound, ErrAccessDenied, ErrUploadFailed, ErrDeleteFailed);
// match them with errors.Is.
package storage
