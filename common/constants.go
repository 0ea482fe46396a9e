package common

const (
	TileSize   = 32
	ChunkTiles = 32

	// ChunkPixels is the world-space edge length of one chunk.
	ChunkPixels = TileSize * ChunkTiles

	TPS = 60
)
