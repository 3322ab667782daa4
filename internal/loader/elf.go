// Package loader implements the ELF64 image loader (spec.md §4.14):
// parses PT_LOAD program headers, maps each with flags derived from
// segment permissions, zero-fills the tail of bss, and reports the
// entry point and an initial user stack. Grounded on
// _examples/Oichkatzelesfrettschen-biscuit/biscuit/src/kernel/chentry.go's use of the standard
// library's debug/elf and encoding/binary packages, carried over from
// its narrow entry-point-patching job into full PT_LOAD parsing.
package loader

import (
	"bytes"
	"debug/elf"

	"github.com/veridian-os/kernel/internal/ktypes"
	"github.com/veridian-os/kernel/internal/mem"
	"github.com/veridian-os/kernel/internal/proc"
	"github.com/veridian-os/kernel/internal/vm"
)

const PageSize = mem.PageSize

// DefaultStackSize is the initial user stack mapping's length.
const DefaultStackSize = 256 * 1024

// DefaultStackTop is the fixed top-of-stack address for bootstrap
// images (spec.md §4.14: "fixed load address").
const DefaultStackTop = 0x7fff_ffff_f000

func flagsFor(progFlags elf.ProgFlag) vm.PageFlags {
	var f vm.PageFlags
	if progFlags&elf.PF_R != 0 {
		f |= vm.FlagRead
	}
	if progFlags&elf.PF_W != 0 {
		f |= vm.FlagWrite
	}
	if progFlags&elf.PF_X != 0 {
		f |= vm.FlagExec
	}
	return f | vm.FlagUser
}

// New returns a proc.ImageLoader that maps the PT_LOAD segments of
// data into a fresh address space. data is held by the closure rather
// than copied per-load, matching the teacher's unwrapped
// debug/elf.NewFile(f) pattern.
func New(data []byte) proc.ImageLoader {
	return func(as *vm.AddressSpace) (uintptr, uintptr, ktypes.Err_t) {
		return Load(as, data)
	}
}

// Load parses data as an ELF64 executable, installs each PT_LOAD
// segment into as, and maps a fresh user stack. Returns the entry
// point and initial stack pointer.
func Load(as *vm.AddressSpace, data []byte) (entry, userSP uintptr, rerr ktypes.Err_t) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return 0, 0, ktypes.EINVAL
	}
	defer f.Close()

	if err := checkHeader(&f.FileHeader); err != 0 {
		return 0, 0, err
	}

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if err := loadSegment(as, data, prog); err != 0 {
			return 0, 0, err
		}
	}

	sp, err2 := mapStack(as)
	if err2 != 0 {
		return 0, 0, err2
	}

	return uintptr(f.Entry), sp, 0
}

// checkHeader rejects architectures mismatching the kernel's target
// (spec.md §4.14), the same checks chentry.go's chkELF performs before
// patching an entry point.
func checkHeader(eh *elf.FileHeader) ktypes.Err_t {
	if eh.Class != elf.ELFCLASS64 {
		return ktypes.ENOEXEC
	}
	if eh.Data != elf.ELFDATA2LSB {
		return ktypes.ENOEXEC
	}
	if eh.Type != elf.ET_EXEC && eh.Type != elf.ET_DYN {
		return ktypes.ENOEXEC
	}
	if eh.Machine != elf.EM_X86_64 && eh.Machine != elf.EM_AARCH64 {
		return ktypes.ENOEXEC
	}
	return 0
}

func loadSegment(as *vm.AddressSpace, data []byte, prog *elf.Prog) ktypes.Err_t {
	vaddr := uintptr(prog.Vaddr)
	memsz := uintptr(prog.Memsz)
	filesz := uintptr(prog.Filesz)
	flags := flagsFor(prog.Flags)

	pageStart := vaddr &^ (PageSize - 1)
	pageEnd := (vaddr + memsz + PageSize - 1) &^ (PageSize - 1)
	length := pageEnd - pageStart

	mapping, err := as.MapRegion(pageStart, length, flags, vm.BackingAnonymous)
	if err != 0 {
		return err
	}

	segOff := prog.Off
	segData := data[segOff : segOff+uint64(filesz)]
	for off := uintptr(0); off < length; off += PageSize {
		page := pageStart + off
		pageOffsetInSeg := int64(page) - int64(vaddr)

		buf := make([]byte, PageSize)
		if pageOffsetInSeg < int64(filesz) {
			start := pageOffsetInSeg
			if start < 0 {
				start = 0
			}
			end := start + PageSize
			if end > int64(len(segData)) {
				end = int64(len(segData))
			}
			if end > start {
				copy(buf[start-pageOffsetInSeg:], segData[start:end])
			}
		}
		if err := as.InstallFrame(mapping, page, buf); err != 0 {
			return err
		}
	}
	return 0
}

func mapStack(as *vm.AddressSpace) (uintptr, ktypes.Err_t) {
	top := uintptr(DefaultStackTop)
	base := top - DefaultStackSize
	mapping, err := as.MapRegion(base, DefaultStackSize, vm.FlagRead|vm.FlagWrite|vm.FlagUser, vm.BackingAnonymous)
	if err != 0 {
		return 0, err
	}
	if err := as.InstallFrame(mapping, top-PageSize, make([]byte, PageSize)); err != 0 {
		return 0, err
	}
	as.SetStackGuard(base)
	return top - 16, 0 // leave room for the initial return-address slot
}
