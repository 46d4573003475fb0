package password

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// common cubre las contraseñas más filtradas que además pasan la política
// de composición por defecto.
var common = []string{
	"Password1!", "Passw0rd!", "P@ssw0rd", "P@ssword1", "Welcome1!",
	"Qwerty123!", "Admin123!", "Student1!", "Letmein1!", "Abcd1234!",
}

type Blacklist struct {
	mu   sync.RWMutex
	data map[string]struct{}
}

// NewBlacklist arma una blacklist en memoria.
func NewBlacklist(words ...string) *Blacklist {
	bl := &Blacklist{data: make(map[string]struct{}, len(words))}
	bl.Add(words...)
	return bl
}

// DefaultBlacklist retorna la lista embebida de contraseñas comunes.
func DefaultBlacklist() *Blacklist { return NewBlacklist(common...) }

// LoadBlacklist agrega al listado por defecto las líneas del archivo dado
// (una por línea, # para comentarios). Path vacío = sólo el default.
func LoadBlacklist(path string) (*Blacklist, error) {
	bl := DefaultBlacklist()
	if strings.TrimSpace(path) == "" {
		return bl, nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" && !strings.HasPrefix(s, "#") {
			bl.Add(s)
		}
	}
	return bl, sc.Err()
}

func (b *Blacklist) Add(words ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			b.data[w] = struct{}{}
		}
	}
}

func (b *Blacklist) Contains(pwd string) bool {
	if b == nil {
		return false
	}
	p := strings.ToLower(strings.TrimSpace(pwd))
	b.mu.RLock()
	_, ok := b.data[p]
	b.mu.RUnlock()
	return ok
}
