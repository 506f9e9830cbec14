package signer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileKeystoreStore guarda los keystores en dir/<empresa>/<unix-nanos>.p12.
// Nunca sobrescribe: cada subida es un archivo nuevo y la versión anterior queda intacta.
type FileKeystoreStore struct {
	dir string
	now func() time.Time
}

// NewFileKeystoreStore crea el almacén sobre dir.
func NewFileKeystoreStore(dir string) *FileKeystoreStore {
	return &FileKeystoreStore{dir: dir, now: time.Now}
}

// Save escribe el keystore con permisos 0600.
func (s *FileKeystoreStore) Save(companyID string, data []byte) (string, error) {
	if companyID == "" || filepath.Base(companyID) != companyID {
		return "", fmt.Errorf("keystore: empresa inválida %q", companyID)
	}
	dir := filepath.Join(s.dir, companyID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("keystore: crear carpeta: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.p12", s.now().UnixNano()))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("keystore: escribir: %w", err)
	}
	return path, nil
}

// Remove borra un keystore rechazado.
func (s *FileKeystoreStore) Remove(path string) error {
	return os.Remove(path)
}
