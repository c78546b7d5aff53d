package loader

import (
	"bufio"
	"fmt"
	stdimage "image"
	"image/color"
	"io"
	"strconv"
)

// decodeNetPBM reads the plain or raw NetPBM formats (P1-P6: PBM/PGM/
// PPM). No library in the reference corpus or golang.org/x/image
// covers this family, so it is implemented directly; the format is
// simple enough (a whitespace-delimited header plus raw or ASCII
// sample data) that a small dependency-free reader is clearer than
// pulling in an unfamiliar third-party decoder for it.
func decodeNetPBM(r io.Reader) (stdimage.Image, error) {
	br := bufio.NewReader(r)

	magic, err := readToken(br)
	if err != nil {
		return nil, fmt.Errorf("netpbm: read magic: %w", err)
	}

	switch magic {
	case "P1", "P2", "P3", "P4", "P5", "P6":
	default:
		return nil, fmt.Errorf("netpbm: unrecognized magic %q", magic)
	}

	width, err := readInt(br)
	if err != nil {
		return nil, fmt.Errorf("netpbm: read width: %w", err)
	}
	height, err := readInt(br)
	if err != nil {
		return nil, fmt.Errorf("netpbm: read height: %w", err)
	}

	maxVal := 1
	if magic != "P1" && magic != "P4" {
		maxVal, err = readInt(br)
		if err != nil {
			return nil, fmt.Errorf("netpbm: read maxval: %w", err)
		}
	}

	img := stdimage.NewRGBA(stdimage.Rect(0, 0, width, height))

	readSample := func() (int, error) {
		switch magic {
		case "P1", "P2", "P3":
			return readInt(br)
		default:
			b, err := br.ReadByte()
			return int(b), err
		}
	}

	switch magic {
	case "P1": // ASCII bitmap: 1 = black, 0 = white
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v, err := readSample()
				if err != nil {
					return nil, fmt.Errorf("netpbm: read bit: %w", err)
				}
				gray := uint8(255)
				if v != 0 {
					gray = 0
				}
				img.Set(x, y, color.Gray{Y: gray})
			}
		}
	case "P2": // ASCII grayscale
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v, err := readSample()
				if err != nil {
					return nil, fmt.Errorf("netpbm: read gray: %w", err)
				}
				img.Set(x, y, color.Gray{Y: scaleTo8(v, maxVal)})
			}
		}
	case "P3": // ASCII RGB
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				rv, err := readSample()
				if err != nil {
					return nil, fmt.Errorf("netpbm: read r: %w", err)
				}
				gv, err := readSample()
				if err != nil {
					return nil, fmt.Errorf("netpbm: read g: %w", err)
				}
				bv, err := readSample()
				if err != nil {
					return nil, fmt.Errorf("netpbm: read b: %w", err)
				}
				img.Set(x, y, color.RGBA{
					R: scaleTo8(rv, maxVal), G: scaleTo8(gv, maxVal), B: scaleTo8(bv, maxVal), A: 255,
				})
			}
		}
	case "P4": // raw bitmap, packed 1 bit per pixel, MSB first
		rowBytes := (width + 7) / 8
		row := make([]byte, rowBytes)
		for y := 0; y < height; y++ {
			if _, err := io.ReadFull(br, row); err != nil {
				return nil, fmt.Errorf("netpbm: read packed row: %w", err)
			}
			for x := 0; x < width; x++ {
				bit := (row[x/8] >> (7 - uint(x%8))) & 1
				gray := uint8(255)
				if bit != 0 {
					gray = 0
				}
				img.Set(x, y, color.Gray{Y: gray})
			}
		}
	case "P5": // raw grayscale
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v, err := readSample()
				if err != nil {
					return nil, fmt.Errorf("netpbm: read raw gray: %w", err)
				}
				img.Set(x, y, color.Gray{Y: scaleTo8(v, maxVal)})
			}
		}
	case "P6": // raw RGB
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				rv, err := readSample()
				if err != nil {
					return nil, fmt.Errorf("netpbm: read raw r: %w", err)
				}
				gv, err := readSample()
				if err != nil {
					return nil, fmt.Errorf("netpbm: read raw g: %w", err)
				}
				bv, err := readSample()
				if err != nil {
					return nil, fmt.Errorf("netpbm: read raw b: %w", err)
				}
				img.Set(x, y, color.RGBA{
					R: scaleTo8(rv, maxVal), G: scaleTo8(gv, maxVal), B: scaleTo8(bv, maxVal), A: 255,
				})
			}
		}
	}

	return img, nil
}

func scaleTo8(v, maxVal int) uint8 {
	if maxVal <= 0 {
		return 0
	}
	if maxVal == 255 {
		return uint8(v)
	}
	return uint8(v * 255 / maxVal)
}

// readToken reads a whitespace-delimited token, skipping '#' comments,
// as NetPBM headers require.
func readToken(br *bufio.Reader) (string, error) {
	var tok []byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			if len(tok) > 0 {
				return string(tok), nil
			}
			return "", err
		}
		if b == '#' {
			for {
				c, err := br.ReadByte()
				if err != nil || c == '\n' {
					break
				}
			}
			continue
		}
		if isSpace(b) {
			if len(tok) > 0 {
				return string(tok), nil
			}
			continue
		}
		tok = append(tok, b)
	}
}

func readInt(br *bufio.Reader) (int, error) {
	tok, err := readToken(br)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(tok)
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
