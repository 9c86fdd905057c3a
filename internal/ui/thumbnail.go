package ui

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"fygallery/internal/gallery"
)

const (
	// ThumbnailWidth bounds thumbnails made on the fly for items whose stored
	// rendition fyne cannot show directly.
	ThumbnailWidth = 400
	// ThumbnailHeight is the matching height bound.
	ThumbnailHeight = 400
)

type cachedThumb struct {
	src string // the data URI the resource was made from
	res fyne.Resource
}

// ThumbnailManager turns stored thumbnail data URIs into fyne resources and
// caches them by item id.
type ThumbnailManager struct {
	cache      map[string]cachedThumb
	cacheMutex sync.RWMutex
	onError    func(id string, err error)
}

// NewThumbnailManager creates a new thumbnail manager. onError may be nil.
func NewThumbnailManager(onError func(id string, err error)) *ThumbnailManager {
	return &ThumbnailManager{
		cache:   make(map[string]cachedThumb),
		onError: onError,
	}
}

// imageToBytes is a helper to convert image.Image to []byte for Fyne resources.
func imageToBytes(img image.Image) []byte {
	buf := new(bytes.Buffer)
	err := png.Encode(buf, img)
	if err != nil {
		return nil
	}
	return buf.Bytes()
}

// displayable reports whether fyne decodes the MIME type itself.
func displayable(mime string) bool {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/png", "image/svg+xml":
		return true
	}
	return false
}

// GetThumbnail returns the card image for an item. JPEG and PNG renditions
// are wrapped directly. Anything else is decoded and shrunk in the
// background: a placeholder is returned at once and onComplete receives the
// real resource on the UI goroutine.
func (tm *ThumbnailManager) GetThumbnail(it gallery.Item, onComplete func(fyne.Resource)) fyne.Resource {
	src := it.DisplaySrc()
	if src == "" {
		return theme.FileImageIcon()
	}
	tm.cacheMutex.RLock()
	if c, ok := tm.cache[it.ID]; ok && c.src == src {
		tm.cacheMutex.RUnlock()
		return c.res
	}
	tm.cacheMutex.RUnlock()

	mime, data, err := gallery.DecodeDataURI(src)
	if err != nil {
		tm.fail(it.ID, err)
		return theme.BrokenImageIcon()
	}
	if displayable(mime) {
		res := fyne.NewStaticResource(it.ID, data)
		tm.store(it.ID, src, res)
		return res
	}

	go func() {
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			tm.fail(it.ID, err)
			return
		}
		thumbImg := resize.Thumbnail(ThumbnailWidth, ThumbnailHeight, img, resize.Lanczos3)
		thumbBytes := imageToBytes(thumbImg)
		if thumbBytes == nil {
			return
		}
		imgResource := fyne.NewStaticResource(it.ID+".png", thumbBytes)
		tm.store(it.ID, src, imgResource)

		fyne.Do(func() {
			onComplete(imgResource)
		})
	}()

	return theme.FileImageIcon()
}

func (tm *ThumbnailManager) store(id, src string, res fyne.Resource) {
	tm.cacheMutex.Lock()
	tm.cache[id] = cachedThumb{src: src, res: res}
	tm.cacheMutex.Unlock()
}

func (tm *ThumbnailManager) fail(id string, err error) {
	if tm.onError != nil {
		tm.onError(id, err)
	}
}

// Prune drops cached entries for items no longer in the gallery.
func (tm *ThumbnailManager) Prune(items []gallery.Item) {
	keep := make(map[string]bool, len(items))
	for _, it := range items {
		keep[it.ID] = true
	}
	tm.cacheMutex.Lock()
	defer tm.cacheMutex.Unlock()
	for id := range tm.cache {
		if !keep[id] {
			delete(tm.cache, id)
		}
	}
}

// Len is the number of cached thumbnails.
func (tm *ThumbnailManager) Len() int {
	tm.cacheMutex.RLock()
	defer tm.cacheMutex.RUnlock()
	return len(tm.cache)
}
