package loader

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// bootstrapLoadAddr is the fixed load address for init and shell
// bootstrap images (spec.md §4.14: "fixed load address").
const bootstrapLoadAddr = 0x0000_0000_0040_0000

// elfHeaderSize, programHeaderSize are the on-disk sizes of an
// ELF64 file header and a single ELF64 program header, used by
// BuildMinimal the same way chentry.go's binary.Write(&ef.FileHeader)
// writes a whole header struct in one shot.
const (
	elfHeaderSize     = 64
	programHeaderSize = 56
)

// BuildMinimal assembles a position-independent-looking, single-segment
// ELF64 executable image from raw machine code, for bootstrapping pid 1
// or the shell when no on-disk binary is available (spec.md §4.14). The
// resulting image has exactly one PT_LOAD covering [loadAddr,
// loadAddr+len(code)) mapped read+exec, entry point at loadAddr.
func BuildMinimal(code []byte) []byte {
	var buf bytes.Buffer

	const phoff = elfHeaderSize
	fileSize := elfHeaderSize + programHeaderSize + len(code)

	hdr := elf.Header64{
		Ident:     [elf.EI_NIDENT]byte{0x7f, 'E', 'L', 'F', byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT)},
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     bootstrapLoadAddr,
		Phoff:     phoff,
		Shoff:     0,
		Ehsize:    elfHeaderSize,
		Phentsize: programHeaderSize,
		Phnum:     1,
		Shentsize: 0,
		Shnum:     0,
		Shstrndx:  0,
	}
	_ = binary.Write(&buf, binary.LittleEndian, &hdr)

	ph := elf.Prog64{
		Type:   uint32(elf.PT_LOAD),
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Off:    uint64(elfHeaderSize + programHeaderSize),
		Vaddr:  bootstrapLoadAddr,
		Paddr:  bootstrapLoadAddr,
		Filesz: uint64(len(code)),
		Memsz:  uint64(len(code)),
		Align:  uint64(PageSize),
	}
	_ = binary.Write(&buf, binary.LittleEndian, &ph)

	buf.Write(code)

	out := buf.Bytes()
	if len(out) != fileSize {
		// BuildMinimal's own header arithmetic, not caller input; a
		// mismatch here is a bug in this function.
		panic("loader: BuildMinimal produced a mis-sized image")
	}
	return out
}
