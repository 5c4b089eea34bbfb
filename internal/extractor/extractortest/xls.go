package extractortest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// Sheet is one worksheet of a legacy workbook. Names must be ASCII. Cells
// are strings or numbers; nil and "" cells are not written, and an empty row
// leaves a gap with no ROW record.
type Sheet struct {
	Name string
	Rows [][]any
}

const (
	sectorSize   = 512
	miniCutoff   = 4096
	endOfChain   = 0xFFFFFFFE
	freeSector   = 0xFFFFFFFF
	fatSector    = 0xFFFFFFFD
	noStream     = 0xFFFFFFFF
	biffVersion  = 0x0600
	globalsType  = 0x0005
	worksheetTyp = 0x0010
)

// XLS returns a BIFF8 workbook inside a compound file. The Workbook stream
// is padded to the mini stream cutoff so it lives in regular sectors.
func XLS(sheets ...Sheet) []byte {
	bodies := make([][]byte, len(sheets))
	for i, s := range sheets {
		bodies[i] = sheetStream(s)
	}

	globalsLen := len(bofRecord(globalsType)) + 4
	for _, s := range sheets {
		globalsLen += 4 + 8 + len(s.Name)
	}

	var globals bytes.Buffer
	globals.Write(bofRecord(globalsType))
	pos := globalsLen
	for i, s := range sheets {
		var p bytes.Buffer
		binary.Write(&p, binary.LittleEndian, uint32(pos))
		p.Write([]byte{0, 0, byte(len(s.Name)), 0})
		p.WriteString(s.Name)
		writeRecord(&globals, 0x0085, p.Bytes())
		pos += len(bodies[i])
	}
	writeRecord(&globals, 0x000A, nil)

	stream := append([]byte{}, globals.Bytes()...)
	for _, body := range bodies {
		stream = append(stream, body...)
	}
	size := max(miniCutoff, (len(stream)+sectorSize-1)/sectorSize*sectorSize)
	stream = append(stream, make([]byte, size-len(stream))...)
	return compoundFile(stream)
}

func sheetStream(s Sheet) []byte {
	var b bytes.Buffer
	b.Write(bofRecord(worksheetTyp))
	for r, row := range s.Rows {
		if len(row) == 0 {
			continue
		}
		var info bytes.Buffer
		binary.Write(&info, binary.LittleEndian, []uint16{uint16(r), 0, uint16(len(row)), 0x00FF, 0, 0})
		binary.Write(&info, binary.LittleEndian, uint32(0x0100))
		writeRecord(&b, 0x0208, info.Bytes())

		for c, v := range row {
			writeCell(&b, r, c, v)
		}
	}
	writeRecord(&b, 0x000A, nil)
	return b.Bytes()
}

func writeCell(b *bytes.Buffer, r, c int, v any) {
	var p bytes.Buffer
	binary.Write(&p, binary.LittleEndian, []uint16{uint16(r), uint16(c), 0x000F})
	switch v := v.(type) {
	case nil:
		return
	case string:
		if v == "" {
			return
		}
		units := utf16.Encode([]rune(v))
		binary.Write(&p, binary.LittleEndian, uint16(len(units)))
		p.WriteByte(1)
		binary.Write(&p, binary.LittleEndian, units)
		writeRecord(b, 0x0204, p.Bytes())
	case int:
		binary.Write(&p, binary.LittleEndian, float64(v))
		writeRecord(b, 0x0203, p.Bytes())
	case float64:
		binary.Write(&p, binary.LittleEndian, v)
		writeRecord(b, 0x0203, p.Bytes())
	default:
		panic(fmt.Sprintf("extractortest: unsupported cell type %T", v))
	}
}

func bofRecord(typ uint16) []byte {
	var p bytes.Buffer
	binary.Write(&p, binary.LittleEndian, []uint16{biffVersion, typ, 0x0DBB, 0x07CC})
	binary.Write(&p, binary.LittleEndian, []uint32{0, 0x06})
	var b bytes.Buffer
	writeRecord(&b, 0x0809, p.Bytes())
	return b.Bytes()
}

func writeRecord(b *bytes.Buffer, id uint16, payload []byte) {
	binary.Write(b, binary.LittleEndian, []uint16{id, uint16(len(payload))})
	b.Write(payload)
}

// compoundFile lays out header, one FAT sector, one directory sector and the
// Workbook stream in consecutive sectors.
func compoundFile(stream []byte) []byte {
	n := len(stream) / sectorSize
	if 2+n > sectorSize/4 {
		panic("extractortest: workbook stream too large for a single FAT sector")
	}

	var out bytes.Buffer
	le := func(v any) { binary.Write(&out, binary.LittleEndian, v) }

	out.Write([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	out.Write(make([]byte, 16))
	le([]uint16{0x003E, 0x0003, 0xFFFE, 9, 6})
	out.Write(make([]byte, 6))
	le([]uint32{0, 1, 1, 0, miniCutoff, endOfChain, 0, endOfChain, 0})
	difat := make([]uint32, 109)
	for i := range difat {
		difat[i] = freeSector
	}
	difat[0] = 0
	le(difat)

	fat := make([]uint32, sectorSize/4)
	for i := range fat {
		fat[i] = freeSector
	}
	fat[0], fat[1] = fatSector, endOfChain
	for i := 0; i < n; i++ {
		fat[2+i] = uint32(3 + i)
	}
	fat[1+n] = endOfChain
	le(fat)

	writeDirEntry(&out, "Root Entry", 5, 1, endOfChain, 0)
	writeDirEntry(&out, "Workbook", 2, noStream, 2, uint32(len(stream)))
	out.Write(make([]byte, 2*128))

	out.Write(stream)
	return out.Bytes()
}

func writeDirEntry(out *bytes.Buffer, name string, typ byte, child, start, size uint32) {
	var nameBuf [32]uint16
	units := utf16.Encode([]rune(name))
	copy(nameBuf[:], units)
	binary.Write(out, binary.LittleEndian, nameBuf)
	binary.Write(out, binary.LittleEndian, uint16((len(units)+1)*2))
	out.Write([]byte{typ, 1})
	binary.Write(out, binary.LittleEndian, []uint32{noStream, noStream, child})
	out.Write(make([]byte, 16+4+16))
	binary.Write(out, binary.LittleEndian, []uint32{start, size, 0})
}
