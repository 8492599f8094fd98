package ports

// ImageStore persists serialized cache images across process lifetimes,
// keyed by compatibility tag. Implementations are best-effort: a failed
// load or save must never prevent compilation.
//
//go:generate mockgen -source=image_store.go -destination=mocks/mock_image_store.go -package=mocks
type ImageStore interface {
	// Load returns the persisted image for the tag.
	// Returns nil, nil when no image exists.
	Load(tag string) ([]byte, error)

	// Save persists the image for the tag, replacing any previous one.
	Save(tag string, image []byte) error

	// Clean removes every persisted image.
	Clean() error
}
