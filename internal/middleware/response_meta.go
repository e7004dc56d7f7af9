package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey  = "response_meta"
	responseStartKey = "response_start"
	cacheHitKey      = "cache_hit"
	processingKey    = "processing_time_ms"
)

// WithResponseMeta starts the clock and the metadata map for a request. Handlers
// pass ExtractMeta(c) to the response so the values land in the body.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheHit marks whether the response data came from the cache.
func SetCacheHit(c *gin.Context, hit bool) {
	metaMap(c)[cacheHitKey] = hit
}

// ExtractMeta returns a snapshot of the metadata with the elapsed time so far.
// It returns nil when WithResponseMeta is not installed and nothing was recorded.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	stored, hasMeta := c.Get(responseMetaKey)
	started, hasStart := c.Get(responseStartKey)
	if !hasMeta && !hasStart {
		return nil
	}

	out := map[string]interface{}{}
	if typed, ok := stored.(map[string]interface{}); ok {
		for k, v := range typed {
			out[k] = v
		}
	}
	if start, ok := started.(time.Time); ok {
		out[processingKey] = time.Since(start).Milliseconds()
	}
	return out
}

func metaMap(c *gin.Context) map[string]interface{} {
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	meta := map[string]interface{}{}
	c.Set(responseMetaKey, meta)
	return meta
}
