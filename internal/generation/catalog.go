package generation

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"imagechat/pkg/models"

	"github.com/jonboulle/clockwork"
)

const DefaultCatalogTTL = 10 * time.Minute

var builtinTypes = []models.GenerationTypeInfo{
	{ID: models.TextToImage, Name: "文生图", Description: "纯文本输入单图输出"},
	{ID: models.ImageToImage, Name: "图文生图", Description: "单图输入单图输出", RequiresInputImage: true},
	{ID: models.MultiImageFusion, Name: "多图融合", Description: "多图输入单图输出", RequiresInputImage: true},
	{ID: models.BatchGeneration, Name: "组图输出", Description: "多图输出"},
	{ID: models.TextToBatch, Name: "文生组图", Description: "文本生成多张图片"},
	{ID: models.ImageToBatch, Name: "单张图生组图", Description: "单图输入多图输出", RequiresInputImage: true},
	{ID: models.MultiReferenceBatch, Name: "多参考图生组图", Description: "多图输入多图输出", RequiresInputImage: true},
}

func BuiltinTypes() []models.GenerationTypeInfo {
	return slices.Clone(builtinTypes)
}

type TypeSource interface {
	GenerationTypes(ctx context.Context) ([]models.GenerationTypeInfo, error)
}

// TypeCatalog serves the generation modes offered by the service, cached
// for ttl. When a refresh fails the last fetched list is kept; the built-in
// list is used only before any fetch has succeeded.
type TypeCatalog struct {
	source TypeSource
	clock  clockwork.Clock
	ttl    time.Duration

	mu        sync.Mutex
	types     []models.GenerationTypeInfo
	fetchedAt time.Time
}

func NewTypeCatalog(source TypeSource, clock clockwork.Clock, ttl time.Duration) *TypeCatalog {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &TypeCatalog{source: source, clock: clock, ttl: ttl}
}

func (c *TypeCatalog) Types(ctx context.Context) []models.GenerationTypeInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.types != nil && c.clock.Since(c.fetchedAt) < c.ttl {
		return slices.Clone(c.types)
	}

	types, err := c.source.GenerationTypes(ctx)
	if err != nil || len(types) == 0 {
		if err != nil {
			slog.Warn("unable to fetch generation types", "cached", c.types != nil, "error", err)
		}
		if c.types != nil {
			return slices.Clone(c.types)
		}
		return BuiltinTypes()
	}

	c.types = types
	c.fetchedAt = c.clock.Now()
	return slices.Clone(types)
}
