// Package integrity calcula hashes con clave (HMAC-SHA256) sobre una
// serialización canónica de acciones, para detectar alteraciones posteriores.
//
// La serialización canónica v1 es, en este orden y separada por '\n':
//
//	v1
//	action=<Name>
//	actor=<ActorID o "system">
//	resource=<ResourceType>:<ResourceID>
//	ts=<Timestamp UTC, RFC3339Nano, truncado a microsegundos>
//	details=<JSON canónico de Details>
//
// JSON canónico: claves de objeto ordenadas, sin espacios, números con su
// texto original, sin escape HTML. Un Details nil equivale a "{}".
// Cambiar cualquiera de estas reglas invalida todos los hashes guardados.
package integrity

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	// Version prefija la serialización canónica.
	Version = "v1"

	// SystemActor reemplaza al actor cuando no hay usuario.
	SystemActor = "system"

	minKeyBytes = 32
)

var (
	ErrShortKey = errors.New("integrity: key must be at least 32 bytes")
	ErrClosed   = errors.New("integrity: signer closed")
)

// Action es el snapshot que se firma.
type Action struct {
	Name         string
	ActorID      string
	ResourceType string
	ResourceID   string
	Details      any
	Timestamp    time.Time
}

// Timestamp normaliza un instante al formato que se firma y se persiste.
// Postgres guarda microsegundos; truncar antes de firmar hace que el valor
// leído de vuelta reproduzca los mismos bytes.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Canonical devuelve los bytes exactos que entran al HMAC.
func Canonical(a Action) ([]byte, error) {
	details, err := CanonicalJSON(a.Details)
	if err != nil {
		return nil, err
	}
	actor := a.ActorID
	if actor == "" {
		actor = SystemActor
	}

	var b bytes.Buffer
	b.WriteString(Version)
	b.WriteString("\naction=")
	b.WriteString(a.Name)
	b.WriteString("\nactor=")
	b.WriteString(actor)
	b.WriteString("\nresource=")
	b.WriteString(a.ResourceType)
	b.WriteByte(':')
	b.WriteString(a.ResourceID)
	b.WriteString("\nts=")
	b.WriteString(Timestamp(a.Timestamp).Format(time.RFC3339Nano))
	b.WriteString("\ndetails=")
	b.Write(details)
	return b.Bytes(), nil
}

// CanonicalJSON serializa v con claves ordenadas y números preservados.
func CanonicalJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	first, err := encode(v)
	if err != nil {
		return nil, fmt.Errorf("integrity: encode details: %w", err)
	}
	// Segunda pasada: decodificar con UseNumber normaliza structs, maps
	// tipados y números a la misma forma que se obtiene al releer de la DB.
	dec := json.NewDecoder(bytes.NewReader(first))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("integrity: normalize details: %w", err)
	}
	if generic == nil {
		return []byte("{}"), nil
	}
	out, err := encode(generic)
	if err != nil {
		return nil, fmt.Errorf("integrity: encode details: %w", err)
	}
	return out, nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Signer firma acciones con una clave de proceso.
type Signer struct {
	mu  sync.RWMutex
	key []byte
}

// NewSigner copia la clave; el caller puede borrar la suya.
func NewSigner(key []byte) (*Signer, error) {
	if len(key) < minKeyBytes {
		return nil, ErrShortKey
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Signer{key: k}, nil
}

// Sign devuelve el HMAC-SHA256 en hex de la serialización canónica.
func (s *Signer) Sign(a Action) (string, error) {
	msg, err := Canonical(a)
	if err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return "", ErrClosed
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recalcula el hash y compara en tiempo constante.
func (s *Signer) Verify(a Action, hash string) (bool, error) {
	want, err := s.Sign(a)
	if err != nil {
		return false, err
	}
	got := strings.ToLower(strings.TrimSpace(hash))
	return hmac.Equal([]byte(want), []byte(got)), nil
}

// Close borra la clave.
func (s *Signer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.key {
		s.key[i] = 0
	}
	s.key = nil
}
