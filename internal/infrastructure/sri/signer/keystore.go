package signer

import (
	"crypto/tls"
	"os"
	"sync"
	"time"

	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
)

// LoaderFunc carga un keystore desde disco. LoadFromP12 en producción.
type LoaderFunc func(path, password string) (tls.Certificate, error)

type keyStoreEntry struct {
	path    string
	modTime time.Time
	size    int64
	version int
	cert    tls.Certificate
}

// KeyStoreCache mantiene el certificado descifrado por empresa. Una entrada se invalida
// cuando cambia la ruta, la versión del certificado o el archivo (mtime/tamaño).
type KeyStoreCache struct {
	mu      sync.Mutex
	load    LoaderFunc
	maxSize int
	entries map[string]keyStoreEntry
}

// NewKeyStoreCache crea la caché. load nil = LoadFromP12; maxSize <= 0 = sin límite.
func NewKeyStoreCache(load LoaderFunc, maxSize int) *KeyStoreCache {
	if load == nil {
		load = LoadFromP12
	}
	return &KeyStoreCache{load: load, maxSize: maxSize, entries: make(map[string]keyStoreEntry)}
}

// Get devuelve el certificado de la empresa, recargándolo solo si el keystore rotó.
func (c *KeyStoreCache) Get(companyID, path, password string, version int) (tls.Certificate, error) {
	if path == "" {
		return tls.Certificate{}, &sri.SigningError{Reason: "la empresa no tiene keystore configurado"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return tls.Certificate{}, &sri.SigningError{Reason: "no se pudo abrir el keystore", Cause: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[companyID]; ok &&
		e.path == path && e.version == version &&
		e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		return e.cert, nil
	}

	cert, err := c.load(path, password)
	if err != nil {
		delete(c.entries, companyID)
		return tls.Certificate{}, err
	}
	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		if _, exists := c.entries[companyID]; !exists {
			for k := range c.entries {
				delete(c.entries, k)
				break
			}
		}
	}
	c.entries[companyID] = keyStoreEntry{
		path:    path,
		modTime: info.ModTime(),
		size:    info.Size(),
		version: version,
		cert:    cert,
	}
	return cert, nil
}

// Invalidate descarta el certificado cacheado (p. ej. al subir uno nuevo).
func (c *KeyStoreCache) Invalidate(companyID string) {
	c.mu.Lock()
	delete(c.entries, companyID)
	c.mu.Unlock()
}

// Len número de empresas cacheadas.
func (c *KeyStoreCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
