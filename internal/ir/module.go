package ir

// Module is the decoded representation of a WebAssembly module, produced by
// a text.Parser or binary decoder and consumed by internal/validate and
// runtime.Instantiate.
//
// Differences from the wire format: sections that describe index namespaces
// shared with imports (functions, tables, memories, globals, exception
// types) are split here into an Imports slice and a Defs slice, rather than
// a single flat section, because the runtime builds those namespaces in two
// distinct steps (§4.8 instantiation steps 2 and 3).
type Module struct {
	// Types holds the unique FunctionType of every function imported or
	// defined in this module, indexed by TypeIndex.
	Types []*FunctionType

	Imports []*Import

	Functions FunctionIndexSpace
	Tables    TableIndexSpace
	Memories  MemoryIndexSpace
	Globals   GlobalIndexSpace
	Tags      ExceptionTypeIndexSpace

	// Exports maps an export name to the object it refers to. Export names
	// are unique within a module; this is enforced by cross-module
	// validation (internal/validate/module.go), not here.
	Exports map[string]*Export

	// StartFunctionIndex is the function index namespace position of the
	// module's start function, or nil if the module has none.
	StartFunctionIndex *Index

	ElementSegments []*ElementSegment
	DataSegments    []*DataSegment

	// Names holds debug names decoded from the custom "name" section, if
	// any. Never required for correctness; used only for debug names on
	// Function/Table/Memory/Global objects and trap call-stack rendering.
	Names *NameSection
}

// FunctionDef is a module-defined function: its locals and body. Index
// correlated with FunctionIndexSpace.Defs.
//
// Body is already decoded into a flat instruction sequence (rather than the
// raw operator bytes of the wire format) since this package represents the
// post-decode IR validation and instantiation consume; a text.Parser or
// binary decoder is responsible for producing this form.
type FunctionDef struct {
	TypeIndex  Index
	LocalTypes []ValueType
	Body       []Instruction // ends with an Instruction{Opcode: OpcodeEnd}
}

// Instruction is a single decoded operator plus its immediate, if any.
// Structured control instructions (block/loop/if) carry a BlockType; br/
// br_if/call/local.*/global.* carry a single uint32 Index operand; br_table
// carries a list of targets; memory instructions carry an Align/Offset
// pair; const instructions carry their decoded immediate.
type Instruction struct {
	Opcode Opcode

	Block BlockType // block/loop/if

	Index Index // br, br_if, call, call_indirect (type index), local.*, global.*, ref.func

	BrTableTargets []Index // br_table: len-1 targets plus Index as default
	MemArg         MemArg  // load/store instructions

	I32 int32
	I64 int64
	F32 float32
	F64 float64
}

// MemArg is the alignment hint and offset immediate of a memory load/store.
type MemArg struct {
	Align  uint32
	Offset uint32
}

// FunctionIndexSpace is the function index namespace: imports (by
// TypeIndex, resolved via Import.DescFunc) followed by module-defined
// functions.
type FunctionIndexSpace struct {
	ImportCount int
	Defs        []*FunctionDef
}

// Count returns the size of the function index namespace.
func (s *FunctionIndexSpace) Count() uint32 { return uint32(s.ImportCount + len(s.Defs)) }

// TableIndexSpace is the table index namespace. WebAssembly 1.0 allows at
// most one table, so Defs has length 0 or 1 and can only be 1 if
// ImportCount is 0.
type TableIndexSpace struct {
	ImportType *TableType // non-nil iff an imported table exists
	Defs       []*TableType
}

func (s *TableIndexSpace) Count() uint32 {
	n := uint32(len(s.Defs))
	if s.ImportType != nil {
		n++
	}
	return n
}

// MemoryIndexSpace mirrors TableIndexSpace for memories.
type MemoryIndexSpace struct {
	ImportType *MemoryType
	Defs       []*MemoryType
}

func (s *MemoryIndexSpace) Count() uint32 {
	n := uint32(len(s.Defs))
	if s.ImportType != nil {
		n++
	}
	return n
}

// GlobalDef is a module-defined global: its type and constant initializer.
type GlobalDef struct {
	Type *GlobalType
	Init *ConstantExpression
}

// GlobalIndexSpace is the global index namespace: imports (by GlobalType)
// followed by module-defined globals.
type GlobalIndexSpace struct {
	Imports []*GlobalType
	Defs    []*GlobalDef
}

func (s *GlobalIndexSpace) Count() uint32 { return uint32(len(s.Imports) + len(s.Defs)) }

// ExceptionTypeIndexSpace is the exception-type index namespace.
type ExceptionTypeIndexSpace struct {
	Imports []*ExceptionType
	Defs    []*ExceptionType
}

func (s *ExceptionTypeIndexSpace) Count() uint32 { return uint32(len(s.Imports) + len(s.Defs)) }

// Import is a single declared import. Which Desc* field is populated is
// indicated by Kind.
type Import struct {
	Kind   ExternKind
	Module string
	Name   string

	DescFunc   Index // index into Module.Types, when Kind == ExternKindFunc
	DescTable  *TableType
	DescMemory *MemoryType
	DescGlobal *GlobalType
	DescTag    *ExceptionType
}

// Export associates a name with an object in one of the module's index
// namespaces.
type Export struct {
	Kind  ExternKind
	Name  string
	Index Index
}

// ConstantExpression is a restricted constant expression as used for global
// initializers and segment base offsets: one of i32.const, i64.const,
// f32.const, f64.const, global.get (of a previously declared immutable
// import), or ref.null.
type ConstantExpression struct {
	Opcode Opcode
	// I32/I64/F32/F64 hold the decoded immediate for the corresponding
	// *.const opcode. GlobalIndex holds the operand for global.get.
	I32         int32
	I64         int64
	F32         float32
	F64         float64
	GlobalIndex Index
}

// ElementSegment initializes a range of a table with function references.
type ElementSegment struct {
	TableIndex Index
	// Active is false for a passive segment (applied only via table.init).
	Active     bool
	OffsetExpr *ConstantExpression // meaningful only if Active
	Init       []Index             // function index namespace positions
}

// DataSegment initializes a range of a memory with bytes.
type DataSegment struct {
	MemoryIndex Index
	Active      bool
	OffsetExpr  *ConstantExpression // meaningful only if Active
	Init        []byte
}

// NameSection carries the optional custom debug names decoded from a
// module, as described in the WebAssembly binary format's "name" section.
type NameSection struct {
	ModuleName    string
	FunctionNames map[Index]string
	LocalNames    map[Index]map[Index]string
}
