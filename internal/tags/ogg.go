package tags

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/spx/internal/models"
)

// Ogg comment support works at the page level because no maintained Go
// library writes a comment header back into an existing Ogg stream. Only
// the header packets are rebuilt. Audio pages keep their payloads byte
// for byte and are renumbered so the page sequence stays continuous.

const (
	opusHeadMagic      = "OpusHead"
	opusTagsMagic      = "OpusTags"
	vorbisIDMagic      = "\x01vorbis"
	vorbisCommentMagic = "\x03vorbis"
)

type oggPage struct {
	headerType byte
	granule    uint64
	serial     uint32
	sequence   uint32
	lacing     []byte
	payload    []byte
}

// marshal serializes the page and patches in its checksum. The checksum
// covers the whole page with the checksum field itself zeroed.
func (p *oggPage) marshal() []byte {
	buf := make([]byte, 27+len(p.lacing)+len(p.payload))
	copy(buf, "OggS")
	buf[5] = p.headerType
	binary.LittleEndian.PutUint64(buf[6:14], p.granule)
	binary.LittleEndian.PutUint32(buf[14:18], p.serial)
	binary.LittleEndian.PutUint32(buf[18:22], p.sequence)
	buf[26] = byte(len(p.lacing))
	copy(buf[27:], p.lacing)
	copy(buf[27+len(p.lacing):], p.payload)
	binary.LittleEndian.PutUint32(buf[22:26], oggCRC(buf))
	return buf
}

var oggCRCTable = makeOggCRCTable()

// Ogg uses an unreflected CRC-32 with polynomial 0x04c11db7, zero
// initial value, and no final inversion.
func makeOggCRCTable() *[256]uint32 {
	var table [256]uint32
	for i := range table {
		r := uint32(i) << 24
		for k := 0; k < 8; k++ {
			if r&0x80000000 != 0 {
				r = (r << 1) ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		table[i] = r
	}
	return &table
}

func oggCRC(data []byte) uint32 {
	var crc uint32
	for _, b := range data {
		crc = (crc << 8) ^ oggCRCTable[byte(crc>>24)^b]
	}
	return crc
}

func parseOggPages(data []byte) ([]oggPage, error) {
	var pages []oggPage
	off := 0
	for off < len(data) {
		if off+27 > len(data) {
			return nil, fmt.Errorf("truncated page header at offset %d", off)
		}
		if string(data[off:off+4]) != "OggS" {
			return nil, fmt.Errorf("missing capture pattern at offset %d", off)
		}
		if data[off+4] != 0 {
			return nil, fmt.Errorf("unsupported stream structure version %d", data[off+4])
		}
		segments := int(data[off+26])
		if off+27+segments > len(data) {
			return nil, fmt.Errorf("truncated segment table at offset %d", off)
		}
		lacing := append([]byte(nil), data[off+27:off+27+segments]...)
		size := 0
		for _, v := range lacing {
			size += int(v)
		}
		body := off + 27 + segments
		if body+size > len(data) {
			return nil, fmt.Errorf("truncated page body at offset %d", off)
		}
		pages = append(pages, oggPage{
			headerType: data[off+5],
			granule:    binary.LittleEndian.Uint64(data[off+6 : off+14]),
			serial:     binary.LittleEndian.Uint32(data[off+14 : off+18]),
			sequence:   binary.LittleEndian.Uint32(data[off+18 : off+22]),
			lacing:     lacing,
			payload:    append([]byte(nil), data[body:body+size]...),
		})
		off = body + size
	}
	return pages, nil
}

// collectPackets reassembles want packets from the pages starting at
// index start. A lacing value below 255 ends a packet, so packets
// spanning page boundaries come back whole. It reports how many pages
// were consumed.
func collectPackets(pages []oggPage, start, want int) ([][]byte, int, error) {
	var packets [][]byte
	var current []byte
	for idx := start; idx < len(pages); idx++ {
		page := pages[idx]
		off := 0
		for i, lace := range page.lacing {
			n := int(lace)
			current = append(current, page.payload[off:off+n]...)
			off += n
			if n < 255 {
				packets = append(packets, current)
				current = nil
				if len(packets) == want {
					if i != len(page.lacing)-1 {
						return nil, 0, errors.New("header packet shares a page with audio data")
					}
					return packets, idx - start + 1, nil
				}
			}
		}
	}
	return nil, 0, errors.New("stream ended before all header packets")
}

func parseComments(packet []byte, magic string) (string, []string, error) {
	if !bytes.HasPrefix(packet, []byte(magic)) {
		return "", nil, fmt.Errorf("comment header missing %q signature", magic)
	}
	rest := packet[len(magic):]
	if len(rest) < 4 {
		return "", nil, errors.New("truncated comment header")
	}
	vendorLen := int(binary.LittleEndian.Uint32(rest[:4]))
	rest = rest[4:]
	if len(rest) < vendorLen {
		return "", nil, errors.New("truncated comment header")
	}
	vendor := string(rest[:vendorLen])
	rest = rest[vendorLen:]
	if len(rest) < 4 {
		return "", nil, errors.New("truncated comment header")
	}
	count := int(binary.LittleEndian.Uint32(rest[:4]))
	rest = rest[4:]
	var comments []string
	for i := 0; i < count; i++ {
		if len(rest) < 4 {
			return "", nil, errors.New("truncated comment header")
		}
		n := int(binary.LittleEndian.Uint32(rest[:4]))
		rest = rest[4:]
		if len(rest) < n {
			return "", nil, errors.New("truncated comment header")
		}
		comments = append(comments, string(rest[:n]))
		rest = rest[n:]
	}
	return vendor, comments, nil
}

// buildCommentPacket serializes a comment header. Vorbis comment
// packets end with a framing byte, Opus ones do not.
func buildCommentPacket(magic, vendor string, comments []string, framed bool) []byte {
	var buf bytes.Buffer
	buf.WriteString(magic)
	writeLenString(&buf, vendor)
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], uint32(len(comments)))
	buf.Write(scratch[:])
	for _, c := range comments {
		writeLenString(&buf, c)
	}
	if framed {
		buf.WriteByte(0x01)
	}
	return buf.Bytes()
}

func writeLenString(buf *bytes.Buffer, s string) {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], uint32(len(s)))
	buf.Write(scratch[:])
	buf.WriteString(s)
}

// replaceFields drops any existing title, artist, and album comments
// and appends the track's values. Other comments, like the encoder
// stamp, survive untouched.
func replaceFields(comments []string, track models.Track) []string {
	kept := make([]string, 0, len(comments)+3)
	for _, c := range comments {
		if key, _, ok := strings.Cut(c, "="); ok {
			switch strings.ToUpper(key) {
			case "TITLE", "ARTIST", "ALBUM":
				continue
			}
		}
		kept = append(kept, c)
	}
	return append(kept,
		"TITLE="+track.Name,
		"ARTIST="+track.Artists,
		"ALBUM="+track.Album,
	)
}

// pagePackets lays packets out onto fresh pages, at most 255 lacing
// values per page. A page opens with the continuation flag when the
// previous page ended mid-packet, which shows as a trailing lacing
// value of 255.
func pagePackets(packets [][]byte, serial, firstSeq uint32) []oggPage {
	var lacing []byte
	var payload []byte
	for _, p := range packets {
		n := len(p)
		for n >= 255 {
			lacing = append(lacing, 255)
			n -= 255
		}
		lacing = append(lacing, byte(n))
		payload = append(payload, p...)
	}

	var pages []oggPage
	seq := firstSeq
	payloadOff := 0
	for off := 0; off < len(lacing); off += 255 {
		end := off + 255
		if end > len(lacing) {
			end = len(lacing)
		}
		segment := lacing[off:end]
		size := 0
		for _, v := range segment {
			size += int(v)
		}
		page := oggPage{
			serial:   serial,
			sequence: seq,
			lacing:   append([]byte(nil), segment...),
			payload:  append([]byte(nil), payload[payloadOff:payloadOff+size]...),
		}
		if off > 0 && lacing[off-1] == 255 {
			page.headerType = 0x01
		}
		pages = append(pages, page)
		payloadOff += size
		seq++
	}
	return pages
}

// applyOggComments rewrites the comment header of an Ogg Opus or Ogg
// Vorbis file in place. The identification header page stays as is, the
// comment packet is rebuilt, and for Vorbis the setup packet rides
// along because it shares pages with the comment packet.
func applyOggComments(path string, track models.Track) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read ogg file: %w", err)
	}
	pages, err := parseOggPages(data)
	if err != nil {
		return fmt.Errorf("failed to parse ogg file: %w", err)
	}
	if len(pages) == 0 {
		return errors.New("ogg file has no pages")
	}
	first := pages[0]
	if first.headerType&0x02 == 0 {
		return errors.New("ogg file does not start with a beginning-of-stream page")
	}

	var (
		magic  string
		want   int
		framed bool
	)
	switch {
	case bytes.HasPrefix(first.payload, []byte(opusHeadMagic)):
		magic, want, framed = opusTagsMagic, 1, false
	case bytes.HasPrefix(first.payload, []byte(vorbisIDMagic)):
		magic, want, framed = vorbisCommentMagic, 2, true
	default:
		return errors.New("unrecognized ogg codec")
	}

	packets, consumed, err := collectPackets(pages, 1, want)
	if err != nil {
		return fmt.Errorf("failed to read ogg headers: %w", err)
	}
	vendor, comments, err := parseComments(packets[0], magic)
	if err != nil {
		return fmt.Errorf("failed to parse ogg comments: %w", err)
	}
	packets[0] = buildCommentPacket(magic, vendor, replaceFields(comments, track), framed)

	rebuilt := pagePackets(packets, first.serial, 1)

	out := make([]oggPage, 0, 1+len(rebuilt)+len(pages)-1-consumed)
	out = append(out, first)
	out = append(out, rebuilt...)
	seq := uint32(1 + len(rebuilt))
	for _, page := range pages[1+consumed:] {
		page.sequence = seq
		seq++
		out = append(out, page)
	}

	var buf bytes.Buffer
	for i := range out {
		buf.Write(out[i].marshal())
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write ogg file: %w", err)
	}
	return nil
}
