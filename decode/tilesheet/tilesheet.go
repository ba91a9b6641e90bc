// Package tilesheet repaginates the flat tilea.bmp/tileas.bmp tile stream
// into fixed-size KTX2 pages.
package tilesheet

import (
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"

	"github.com/darkages-tools/legacytranscode/decode"
	"github.com/darkages-tools/legacytranscode/internal/ktx2"
	"github.com/darkages-tools/legacytranscode/legacyerr"
)

const (
	TileWidth   = 56
	TileHeight  = 27
	TilesPerRow = 128
	RowsPerPage = 5
	TilesPerPage = TilesPerRow * RowsPerPage
	PageWidth   = TileWidth * TilesPerRow // 7168
)

// Decode splits data (a flat stream of TileWidth x TileHeight 8-bit indexed
// tiles) into pages of up to TilesPerPage tiles each, emitting one KTX2
// artifact per page named "<base>_NNN.ktx2".
func Decode(datBasename, leafName string, data []byte) ([]decode.Artifact, error) {
	tileBytes := TileWidth * TileHeight
	if len(data)%tileBytes != 0 {
		return nil, &legacyerr.DecoderError{Kind: "tile", Leaf: leafName, Fatal: true,
			Err: fmt.Errorf("tile stream length %d is not a multiple of %d", len(data), tileBytes)}
	}
	totalTiles := len(data) / tileBytes
	base := strings.TrimSuffix(strings.ToLower(leafName), ".bmp")

	var artifacts []decode.Artifact
	for pageIdx := 0; pageIdx*TilesPerPage < totalTiles; pageIdx++ {
		startTile := pageIdx * TilesPerPage
		endTile := startTile + TilesPerPage
		if endTile > totalTiles {
			endTile = totalTiles
		}
		tilesInPage := endTile - startTile
		rowsThisPage := (tilesInPage + TilesPerRow - 1) / TilesPerRow
		pageHeight := rowsThisPage * TileHeight

		page := image.NewGray(image.Rect(0, 0, PageWidth, pageHeight))
		for i := 0; i < tilesInPage; i++ {
			tileData := data[(startTile+i)*tileBytes : (startTile+i+1)*tileBytes]
			tileImg := &image.Gray{
				Pix:    tileData,
				Stride: TileWidth,
				Rect:   image.Rect(0, 0, TileWidth, TileHeight),
			}
			row := i / TilesPerRow
			col := i % TilesPerRow
			dstRect := image.Rect(col*TileWidth, row*TileHeight, (col+1)*TileWidth, (row+1)*TileHeight)
			draw.Draw(page, dstRect, tileImg, image.Point{}, draw.Src)
		}

		h, err := ktx2.Encode(ktx2.Header{Width: PageWidth, Height: uint32(pageHeight), Format: ktx2.FormatR8Unorm}, page.Pix)
		if err != nil {
			return nil, &legacyerr.DecoderError{Kind: "tile", Leaf: leafName, Fatal: true, Err: err}
		}
		artifacts = append(artifacts, decode.Artifact{
			LogicalPath: decode.LeafPath(datBasename, fmt.Sprintf("%s_%03d.ktx2", base, pageIdx)),
			Bytes:       h,
		})
	}
	return artifacts, nil
}
