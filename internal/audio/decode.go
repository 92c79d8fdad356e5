package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/lexiqai/avatar-link/internal/protocol"
)

// Supported clip formats
const (
	FormatWAV = "wav"
	FormatMP3 = "mp3"
)

// DecodeClip turns a base64 clip into mono PCM at targetRate. The container
// header is authoritative for the source rate; clip.SampleRate is advisory.
// Failures are returned as a DecodeError of kind audio.
func DecodeClip(clip protocol.AudioPayload, targetRate int) (*PCM, error) {
	data, err := decodeBase64(clip.Audio)
	if err != nil {
		return nil, protocol.NewDecodeError(protocol.KindAudio, fmt.Errorf("invalid base64: %w", err))
	}
	if len(data) == 0 {
		return nil, protocol.NewDecodeError(protocol.KindAudio, errors.New("empty clip"))
	}

	format := strings.ToLower(clip.Format)
	if format == "" {
		format = sniffFormat(data)
	}

	var pcm *PCM
	switch format {
	case FormatWAV:
		pcm, err = decodeWAV(data)
	case FormatMP3:
		pcm, err = decodeMP3(data)
	default:
		err = fmt.Errorf("unsupported format %q", clip.Format)
	}
	if err != nil {
		return nil, protocol.NewDecodeError(protocol.KindAudio, err)
	}
	if pcm.Len() == 0 {
		return nil, protocol.NewDecodeError(protocol.KindAudio, errors.New("clip has no samples"))
	}

	if targetRate > 0 && pcm.SampleRate != targetRate {
		pcm.Samples = resample(pcm.Samples, pcm.SampleRate, targetRate)
		pcm.SampleRate = targetRate
	}
	return pcm, nil
}

// decodeBase64 strips an optional data URL prefix ("data:audio/wav;base64,")
// and decodes the remainder, tolerating missing padding
func decodeBase64(encoded string) ([]byte, error) {
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.IndexByte(encoded, ','); i >= 0 {
			encoded = encoded[i+1:]
		}
	}
	encoded = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, encoded)

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "=")); rawErr == nil {
			return raw, nil
		}
		return nil, err
	}
	return data, nil
}

// sniffFormat guesses the container from magic bytes
func sniffFormat(data []byte) string {
	switch {
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case len(data) >= 3 && string(data[:3]) == "ID3":
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	}
	return ""
}

func decodeWAV(data []byte) (*PCM, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, errors.New("not a valid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read wav samples: %w", err)
	}
	return intBufferToPCM(buf)
}

// intBufferToPCM normalizes integer samples by their source bit depth and
// downmixes to mono
func intBufferToPCM(buf *goaudio.IntBuffer) (*PCM, error) {
	if buf == nil || buf.Format == nil {
		return nil, errors.New("missing audio format")
	}
	if buf.Format.SampleRate <= 0 || buf.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("invalid audio format: %d Hz, %d channels", buf.Format.SampleRate, buf.Format.NumChannels)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}

	samples := make([]float64, len(buf.Data))
	if bitDepth == 8 {
		// 8-bit wav is unsigned
		for i, v := range buf.Data {
			samples[i] = float64(v-128) / 128
		}
	} else {
		scale := float64(int64(1) << uint(bitDepth-1))
		for i, v := range buf.Data {
			samples[i] = float64(v) / scale
		}
	}

	return &PCM{
		Samples:    downmix(samples, buf.Format.NumChannels),
		SampleRate: buf.Format.SampleRate,
	}, nil
}

// decodeMP3 decodes to go-mp3's fixed output: 16-bit little-endian stereo
func decodeMP3(data []byte) (*PCM, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open mp3 stream: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to read mp3 samples: %w", err)
	}

	const channels = 2
	samples := make([]float64, len(raw)/2)
	for i := range samples {
		samples[i] = float64(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768
	}

	return &PCM{
		Samples:    downmix(samples, channels),
		SampleRate: dec.SampleRate(),
	}, nil
}
