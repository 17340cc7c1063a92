package storage

// PutOption configures Put operations.
type PutOption func(*putOptions)

type putOptions struct {
	contentType  string
	cacheControl string
}

// WithContentType sets the Content-Type stored with the object.
func WithContentType(ct string) PutOption {
	return func(o *putOptions) {
		o.contentType = ct
	}
}

// WithCacheControl sets the Cache-Control header served with the object.
func WithCacheControl(cc string) PutOption {
	return func(o *putOptions) {
		o.cacheControl = cc
	}
}
