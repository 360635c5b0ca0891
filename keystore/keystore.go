package keystore

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gridprotocol/computing-evaluator/lib/attest"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/xerrors"
)

const (
	privateSuffix = ".key"
	publicSuffix  = ".pub"

	privatePerm = 0600
	publicPerm  = 0644
)

type KeyStore interface {
	Put(name string, info KeyInfo) error
	Get(name string) (KeyInfo, error)
	List() ([]string, error)
	Exist(name string) (bool, error)
	Delete(name string) error
	Close() error
}

var _ KeyStore = (*keyStore)(nil)

type keyStore struct {
	path string
}

// create a repo to store key files
func NewKeyStore(path string) (KeyStore, error) {
	p, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p, 0700); err != nil {
		return nil, err
	}
	return &keyStore{path: p}, nil
}

// Put writes <name>.key (raw 32-byte seed) and <name>.pub (raw public
// key). An existing key is never overwritten.
func (k *keyStore) Put(name string, info KeyInfo) error {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return xerrors.Errorf("invalid key name %q", name)
	}
	priv := joinPath(k.path, name+privateSuffix)
	if _, err := os.Stat(priv); err == nil {
		return xerrors.Errorf("key %q already exists", name)
	}
	return SaveKeyPair(info.SecretKey, priv, joinPath(k.path, name+publicSuffix))
}

func (k *keyStore) Get(name string) (KeyInfo, error) {
	sk, err := ReadPrivateKey(joinPath(k.path, name+privateSuffix))
	if err != nil {
		return KeyInfo{}, err
	}
	return KeyInfo{Type: Ed25519, SecretKey: sk}, nil
}

func (k *keyStore) List() ([]string, error) {
	entries, err := os.ReadDir(k.path)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if n := e.Name(); !e.IsDir() && strings.HasSuffix(n, privateSuffix) {
			keys = append(keys, strings.TrimSuffix(n, privateSuffix))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// check if a name exists
func (k *keyStore) Exist(name string) (bool, error) {
	l, err := k.List()
	if err != nil {
		return false, err
	}
	for _, v := range l {
		if v == name {
			return true, nil
		}
	}
	return false, nil
}

func (k *keyStore) Delete(name string) error {
	if _, err := k.Get(name); err != nil {
		return err
	}
	if err := os.Remove(joinPath(k.path, name+privateSuffix)); err != nil {
		return err
	}
	err := os.Remove(joinPath(k.path, name+publicSuffix))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (k *keyStore) Close() error {
	return nil
}

// SaveKeyPair writes the raw seed with mode 0600 and the raw public key
// with mode 0644.
func SaveKeyPair(sk ed25519.PrivateKey, privatePath, publicPath string) error {
	if len(sk) != ed25519.PrivateKeySize {
		return xerrors.Errorf("save key: private key size %d", len(sk))
	}
	if err := writeKeyFile(privatePath, sk.Seed(), privatePerm); err != nil {
		return xerrors.Errorf("write private key: %w", err)
	}
	pk := sk.Public().(ed25519.PublicKey)
	if err := writeKeyFile(publicPath, pk, publicPerm); err != nil {
		return xerrors.Errorf("write public key: %w", err)
	}
	return nil
}

// ReadPrivateKey loads a private key in any encoding attest accepts.
func ReadPrivateKey(path string) (ed25519.PrivateKey, error) {
	b, err := readFile(path)
	if err != nil {
		return nil, err
	}
	sk, err := attest.LoadPrivateKey(b)
	if err != nil {
		return nil, xerrors.Errorf("private key %s: %w", path, err)
	}
	return sk, nil
}

// ReadPublicKey loads a raw 32-byte public key.
func ReadPublicKey(path string) (ed25519.PublicKey, error) {
	b, err := readFile(path)
	if err != nil {
		return nil, err
	}
	pk, err := attest.LoadPublicKey(b)
	if err != nil {
		return nil, xerrors.Errorf("public key %s: %w", path, err)
	}
	return pk, nil
}

func readFile(path string) ([]byte, error) {
	p, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, xerrors.Errorf("read key file: %w", err)
	}
	return b, nil
}

func joinPath(dir string, filename string) (path string) {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(dir, filename)
}

func writeTemporaryKeyFile(file string, content []byte, perm os.FileMode) (string, error) {
	// Create the keystore directory with appropriate permissions
	// in case it is not present yet.
	const dirPerm = 0700
	if err := os.MkdirAll(filepath.Dir(file), dirPerm); err != nil {
		return "", err
	}
	// Atomic write: create a temporary hidden file first
	// then move it into place. CreateTemp assigns mode 0600.
	f, err := os.CreateTemp(filepath.Dir(file), "."+filepath.Base(file)+".tmp")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Chmod(perm); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	f.Close()
	return f.Name(), nil
}

func writeKeyFile(file string, content []byte, perm os.FileMode) error {
	p, err := homedir.Expand(file)
	if err != nil {
		return err
	}
	name, err := writeTemporaryKeyFile(p, content, perm)
	if err != nil {
		return err
	}
	return os.Rename(name, p)
}
