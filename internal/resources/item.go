package resources

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // registers the JPEG decoder for Image resources
	_ "image/png"  // registers the PNG decoder for Image resources
	"os"
	"sync"
)

// ID is a stable resource identifier. Zero means no resource.
type ID uint64

// NoID is the unset resource id.
const NoID ID = 0

const (
	KindColour = "colour"
	KindImage  = "image"
)

// ErrOffline reports a resource whose backing data is unavailable.
var ErrOffline = errors.New("resource offline")

// Item is a resource held by a Manager.
type Item interface {
	ID() ID
	Kind() string
	Name() string
	Online() bool
}

type base struct {
	id     ID
	name   string
	online bool
}

func (b *base) ID() ID           { return b.id }
func (b *base) Name() string     { return b.name }
func (b *base) Online() bool     { return b.online }
func (b *base) setID(id ID)      { b.id = id }
func (b *base) setOnline(v bool) { b.online = v }

type mutableItem interface {
	Item
	setID(ID)
	setOnline(bool)
}

// Colour is a solid colour resource.
type Colour struct {
	base
	mu    sync.RWMutex
	value color.NRGBA
}

// NewColour returns an online colour resource.
func NewColour(name string, c color.NRGBA) *Colour {
	return &Colour{base: base{name: name, online: true}, value: c}
}

func (c *Colour) Kind() string { return KindColour }

// Value returns the colour. It is safe to call from decode goroutines.
func (c *Colour) Value() color.NRGBA {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

func (c *Colour) set(v color.NRGBA) {
	c.mu.Lock()
	c.value = v
	c.mu.Unlock()
}

// Image is a still image loaded from disk on first use.
type Image struct {
	base
	path string

	mu      sync.Mutex
	decoded image.Image
	err     error
}

// NewImage returns an image resource for path. It starts online when the
// file exists.
func NewImage(name, path string) *Image {
	_, err := os.Stat(path)
	return &Image{base: base{name: name, online: err == nil}, path: path}
}

func (i *Image) Kind() string { return KindImage }

// Path returns the source file path.
func (i *Image) Path() string { return i.path }

// Decode loads and caches the image. It is safe for concurrent use.
func (i *Image) Decode() (image.Image, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.decoded != nil || i.err != nil {
		return i.decoded, i.err
	}
	f, err := os.Open(i.path)
	if err != nil {
		i.err = fmt.Errorf("%w: %s: %v", ErrOffline, i.path, err)
		return nil, i.err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		i.err = fmt.Errorf("decode %s: %w", i.path, err)
		return nil, i.err
	}
	i.decoded = img
	return img, nil
}

// invalidate drops the cached decode so the next Decode reloads the file.
func (i *Image) invalidate() {
	i.mu.Lock()
	i.decoded, i.err = nil, nil
	i.mu.Unlock()
}
