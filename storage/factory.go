package storage

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hayeon-dev/ai-gallery/config"
)

// Factory holds the initialized storage providers and the default one new
// uploads go to.
type Factory struct {
	providers       map[string]Provider
	defaultProvider string
}

// NewFactory initializes every provider the configuration enables. A
// provider that fails to initialize is skipped with a warning; the default
// provider must be among the survivors.
func NewFactory(cfg *config.Config) (*Factory, error) {
	factory := &Factory{
		providers: make(map[string]Provider),
	}

	if cfg.StorageLocalPath != "" {
		localProvider, err := NewLocalStorage(cfg.StorageLocalPath)
		if err != nil {
			zap.L().Warn("failed to initialize local storage", zap.Error(err))
		} else {
			factory.providers["local"] = localProvider
		}
	}

	if cfg.MinioEndpoint != "" {
		minioProvider, err := NewMinioStorage(cfg)
		if err != nil {
			zap.L().Warn("failed to initialize minio storage", zap.Error(err))
		} else {
			factory.providers["minio"] = minioProvider
		}
	}

	if cfg.WebDAVURL != "" {
		webdavProvider, err := NewWebDAVStorage(cfg)
		if err != nil {
			zap.L().Warn("failed to initialize webdav storage", zap.Error(err))
		} else {
			factory.providers["webdav"] = webdavProvider
		}
	}

	if len(factory.providers) == 0 {
		return nil, fmt.Errorf("no storage providers were successfully initialized")
	}

	factory.defaultProvider = cfg.StorageType
	if _, ok := factory.providers[factory.defaultProvider]; !ok {
		return nil, fmt.Errorf("default storage type '%s' is not available", factory.defaultProvider)
	}
	zap.L().Info("storage providers initialized",
		zap.Int("count", len(factory.providers)),
		zap.String("default", factory.defaultProvider))

	return factory, nil
}

// Get returns the provider with the given name.
func (f *Factory) Get(name string) (Provider, error) {
	provider, ok := f.providers[name]
	if !ok {
		return nil, fmt.Errorf("storage provider '%s' is not available", name)
	}
	return provider, nil
}

// Default returns the provider new uploads are written to.
func (f *Factory) Default() Provider {
	return f.providers[f.defaultProvider]
}

// DefaultName returns the name of the default provider.
func (f *Factory) DefaultName() string {
	return f.defaultProvider
}
