package speech

import (
	"encoding/binary"
	"time"
)

const silenceSampleRate = 16000

// SilenceWAV encodes the given duration of 16kHz mono 16-bit PCM silence
// as a WAV byte slice. Used for ASR warmup and as the playable fallback
// clip when synthesis fails.
func SilenceWAV(d time.Duration) []byte {
	frames := int(d.Seconds() * silenceSampleRate)
	dataLen := frames * 2
	totalLen := 44 + dataLen

	buf := make([]byte, totalLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(totalLen-8))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], silenceSampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], silenceSampleRate*2) // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], 2)                   // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16)                  // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))

	return buf
}
