package camera

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
)

// dataURIPrefix はエンコード結果の先頭に付くMIMEタイプ表記
const dataURIPrefix = "data:image/jpeg;base64,"

// Codec は生フレームをUI埋め込み用のdata URI文字列へ変換する
type Codec struct{}

// NewCodec は新しいCodecを作成する
func NewCodec() *Codec {
	return &Codec{}
}

// Encode は生フレームをデコードし、指定品質のJPEGとして
// data:image/jpeg;base64,... 形式の文字列へエンコードする
// 品質は0-100。範囲の正規化は行わず、そのままエンコーダーへ渡す
func (c *Codec) Encode(frame *Frame, quality int) (string, error) {
	img, err := c.decode(frame)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncode, err)
	}

	return dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// decode は生フレームをピクセルレイアウトに応じてimage.Imageへ変換する
func (c *Codec) decode(frame *Frame) (image.Image, error) {
	switch frame.Format {
	case FormatMJPEG:
		img, err := jpeg.Decode(bytes.NewReader(frame.Data))
		if err != nil {
			return nil, fmt.Errorf("%w: MJPEGフレーム: %v", ErrDecode, err)
		}
		return img, nil

	case FormatYUYV:
		return decodeYUYV(frame)

	default:
		return nil, fmt.Errorf("%w: 未知のフォーマット: %s", ErrDecode, frame.Format)
	}
}

// decodeYUYV はYUYV(YUV 4:2:2パックド)フレームをimage.YCbCrへ変換する
// レイアウト: Y0 Cb Y1 Cr が2ピクセル分を表す4バイト
func decodeYUYV(frame *Frame) (image.Image, error) {
	width := int(frame.Width)
	height := int(frame.Height)

	expected := width * height * 2
	if len(frame.Data) < expected {
		return nil, fmt.Errorf("%w: YUYVフレームが不足しています: got %d, want %d",
			ErrDecode, len(frame.Data), expected)
	}

	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio422)

	for y := 0; y < height; y++ {
		row := frame.Data[y*width*2 : (y+1)*width*2]
		for x := 0; x < width; x += 2 {
			i := x * 2
			yi := y*img.YStride + x
			ci := y*img.CStride + x/2

			img.Y[yi] = row[i]
			img.Cb[ci] = row[i+1]
			img.Cr[ci] = row[i+3]
			if x+1 < width {
				img.Y[yi+1] = row[i+2]
			}
		}
	}

	return img, nil
}
