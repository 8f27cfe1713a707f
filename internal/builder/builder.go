// Package builder converts a stream of structural document events into the
// row table and side structures of a database.
//
// The front-end in this file is shared by both build targets. It consumes
// parser events, maintains the parent and name stacks, resolves namespaces,
// feeds the name dictionaries and the path summary, enforces the hard
// limits, and hands finished rows to a Backend. The disk back-end writes
// stream files and patches subtree sizes in a second pass; the memory
// back-end mutates its table directly.
package builder

import (
	"bytes"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/pretreedb/pretree/internal/logging"
	"github.com/pretreedb/pretree/internal/names"
	"github.com/pretreedb/pretree/internal/ns"
	"github.com/pretreedb/pretree/internal/pathidx"
	"github.com/pretreedb/pretree/internal/table"
)

// Build phases, exposed through Detail and Progress.
const (
	phaseParse int32 = iota
	phasePatch
	phaseDone
)

// patchProgresser is implemented by back-ends that run a patch pass.
type patchProgresser interface {
	PatchProgress() (done, total int)
}

// Builder is the parser-event front-end.
type Builder struct {
	meta    *Meta
	parser  Parser
	backend Backend
	logger  logging.Logger

	// ElemNames and AttrNames are the element and attribute name
	// dictionaries; NS the namespace state; Paths the path summary.
	// They are owned by the builder until the build succeeds and are
	// then published with the database handle.
	ElemNames *names.Index
	AttrNames *names.Index
	NS        *ns.Scopes
	Paths     *pathidx.Summary

	// pstack[l] is the pre of the open ancestor at tree level l;
	// tstack[l] its element name id (0 at document level).
	pstack []int
	tstack []int
	level  int

	phase atomic.Int32
	stop  atomic.Bool
}

// New creates a builder that feeds backend with rows for the document
// stream produced by parser. meta must be the same instance the backend
// was created with.
func New(meta *Meta, parser Parser, backend Backend, logger logging.Logger) *Builder {
	return &Builder{
		meta:      meta,
		parser:    parser,
		backend:   backend,
		logger:    logging.OrDefault(logger),
		ElemNames: names.NewIndex(),
		AttrNames: names.NewIndex(),
		NS:        ns.NewScopes(),
		Paths:     pathidx.New(),
	}
}

// Build runs the parser to completion and closes the backend. On any
// error the backend is aborted and all partial state is discarded; the
// database either exists completely or not at all.
func (b *Builder) Build() error {
	b.meta.Time = buildTime()
	if sized, ok := b.parser.(Sized); ok {
		b.meta.FileSize = sized.Len()
	}

	if err := b.parser.Parse(b); err != nil {
		b.fail(err)
		return b.locate(err)
	}
	if b.level != 0 {
		err := fmt.Errorf("builder: input ended at level %d", b.level)
		b.fail(err)
		return err
	}

	b.phase.Store(phasePatch)
	if err := b.backend.Close(); err != nil {
		b.fail(err)
		return err
	}
	b.phase.Store(phaseDone)
	b.logger.Debugf(logging.NSBuild+"%s: %d nodes, %d documents",
		b.meta.Name, b.meta.Size, b.meta.NDocs)
	return nil
}

// Cancel requests the build to stop. The builder observes the flag at the
// next element close and fails with ErrCancelled.
func (b *Builder) Cancel() {
	b.stop.Store(true)
}

// Title returns a short label for the running build.
func (b *Builder) Title() string {
	return "creating " + b.meta.Name
}

// Detail returns the current phase label. Safe to call from another
// goroutine; the value is advisory.
func (b *Builder) Detail() string {
	switch b.phase.Load() {
	case phasePatch:
		return "writing size patches"
	case phaseDone:
		return "done"
	default:
		return b.parser.Detail()
	}
}

// Progress returns the completion fraction in [0, 1]. Safe to call from
// another goroutine; the value is advisory.
func (b *Builder) Progress() float64 {
	switch b.phase.Load() {
	case phasePatch:
		if p, ok := b.backend.(patchProgresser); ok {
			done, total := p.PatchProgress()
			if total > 0 {
				return float64(done) / float64(total)
			}
		}
		return 1
	case phaseDone:
		return 1
	default:
		p := b.parser.Progress()
		if p < 0 {
			return 0
		}
		return p
	}
}

// OpenDoc implements Events.
func (b *Builder) OpenDoc(name []byte) error {
	if b.level != 0 {
		return fmt.Errorf("builder: document opened at level %d", b.level)
	}
	if err := b.checkRange(); err != nil {
		return err
	}
	b.Paths.Put(0, table.Doc, 0, nil)
	b.setStack(0, b.meta.Size, 0)
	if err := b.backend.AddDoc(name); err != nil {
		return err
	}
	b.meta.Size++
	b.level = 1
	b.NS.Prepare()
	return nil
}

// CloseDoc implements Events.
func (b *Builder) CloseDoc() error {
	if b.level != 1 {
		return fmt.Errorf("builder: document closed at level %d", b.level)
	}
	b.level = 0
	pre := b.pstack[0]
	if err := b.backend.SetSize(pre, uint32(b.meta.Size-pre)); err != nil {
		return err
	}
	b.meta.NDocs++
	b.NS.Close(b.meta.Size)
	return nil
}

// OpenElem implements Events.
func (b *Builder) OpenElem(name []byte, atts []Attr, nsps []Binding) error {
	if _, err := b.addElem(name, atts, nsps); err != nil {
		return err
	}
	b.level++
	return nil
}

// EmptyElem implements Events. The namespace scope of an empty element
// closes at its own pre, before any sibling is emitted. If the attribute
// count saturated asize, the subtree size cannot be derived from asize and
// is patched here; no CloseElem will arrive for this element.
func (b *Builder) EmptyElem(name []byte, atts []Attr, nsps []Binding) error {
	pre, err := b.addElem(name, atts, nsps)
	if err != nil {
		return err
	}
	b.NS.Close(pre)
	if len(atts) >= MaxAttsPerElem {
		return b.backend.SetSize(pre, uint32(b.meta.Size-pre))
	}
	return nil
}

// CloseElem implements Events.
func (b *Builder) CloseElem() error {
	if err := b.checkStop(); err != nil {
		return err
	}
	if b.level < 2 {
		return fmt.Errorf("builder: element closed at level %d", b.level)
	}
	b.level--
	pre := b.pstack[b.level]
	if err := b.backend.SetSize(pre, uint32(b.meta.Size-pre)); err != nil {
		return err
	}
	b.NS.Close(pre)
	return nil
}

// Text implements Events. Empty text is dropped.
func (b *Builder) Text(value []byte) error {
	if len(value) == 0 {
		return nil
	}
	return b.addText(value, table.Text)
}

// Comment implements Events.
func (b *Builder) Comment(value []byte) error {
	return b.addText(value, table.Comm)
}

// PI implements Events.
func (b *Builder) PI(value []byte) error {
	return b.addText(value, table.PI)
}

// addElem emits the element row and its attribute rows and returns the
// element's pre.
func (b *Builder) addElem(name []byte, atts []Attr, nsps []Binding) (int, error) {
	if b.level == 0 {
		return 0, fmt.Errorf("builder: element %q outside document", name)
	}
	if err := b.checkRange(); err != nil {
		return 0, err
	}

	n, err := b.ElemNames.Index(name, nil, false)
	if err != nil {
		return 0, ErrLimitElems
	}
	b.Paths.Put(n, table.Elem, b.level, nil)

	pre := b.meta.Size
	b.setStack(b.level, pre, n)

	b.NS.Prepare()
	for _, d := range nsps {
		if _, err := b.NS.Add(d.Prefix, d.URI, pre); err != nil {
			return 0, ErrLimitNS
		}
	}

	dist := uint32(1)
	if b.level > 0 {
		dist = uint32(pre - b.pstack[b.level-1])
	}

	uriID, err := b.resolve(name, true)
	if err != nil {
		return 0, err
	}

	asize := len(atts) + 1
	if asize > MaxAttsPerElem {
		asize = MaxAttsPerElem
	}
	if err := b.backend.AddElem(dist, n, asize, uriID, len(nsps) != 0); err != nil {
		return 0, err
	}
	b.meta.Size++

	for a := range atts {
		if err := b.checkRange(); err != nil {
			return 0, err
		}
		an, err := b.AttrNames.Index(atts[a].Name, atts[a].Value, true)
		if err != nil {
			return 0, ErrLimitAtts
		}
		au, err := b.resolve(atts[a].Name, false)
		if err != nil {
			return 0, err
		}
		b.Paths.Put(an, table.Attr, b.level+1, atts[a].Value)
		adist := a + 1
		if adist > MaxAttsPerElem {
			adist = MaxAttsPerElem
		}
		if err := b.backend.AddAttr(an, atts[a].Value, adist, au); err != nil {
			return 0, err
		}
		b.meta.Size++
	}

	if b.level > 1 {
		b.ElemNames.Stat(b.tstack[b.level-1]).SetLeaf(false)
	}
	return pre, nil
}

// addText emits a text, comment or processing instruction row.
func (b *Builder) addText(value []byte, kind table.Kind) error {
	if b.level == 0 {
		return fmt.Errorf("builder: %v node outside document", kind)
	}
	if err := b.checkRange(); err != nil {
		return err
	}

	if b.level > 1 {
		parent := b.tstack[b.level-1]
		if kind == table.Text {
			b.ElemNames.IndexText(parent, value)
		} else {
			b.ElemNames.Stat(parent).SetLeaf(false)
		}
	}
	b.Paths.Put(0, kind, b.level, value)

	dist := uint32(1)
	if b.level > 0 {
		dist = uint32(b.meta.Size - b.pstack[b.level-1])
	}
	if err := b.backend.AddText(value, dist, kind); err != nil {
		return err
	}
	b.meta.Size++
	return nil
}

// resolve returns the uri id of a qname. A non-empty prefix with no
// in-scope binding is an error, except for the reserved xml prefix.
func (b *Builder) resolve(qname []byte, isElem bool) (int, error) {
	uriID := b.NS.URI(qname, isElem)
	if uriID == 0 {
		if prefix := ns.Prefix(qname); len(prefix) != 0 && !bytes.Equal(prefix, ns.XMLPrefix) {
			return 0, &NamespaceError{Name: append([]byte(nil), qname...)}
		}
	}
	return uriID, nil
}

func (b *Builder) setStack(level, pre, nameID int) {
	for len(b.pstack) <= level {
		b.pstack = append(b.pstack, 0)
		b.tstack = append(b.tstack, 0)
	}
	b.pstack[level] = pre
	b.tstack[level] = nameID
}

func (b *Builder) checkRange() error {
	if b.meta.Size >= math.MaxInt32 {
		return ErrLimitRange
	}
	return nil
}

func (b *Builder) checkStop() error {
	if b.stop.Load() {
		return ErrCancelled
	}
	return nil
}

// fail aborts the backend. Abort errors are logged by the backend itself
// and never mask the original cause.
func (b *Builder) fail(err error) {
	b.logger.Debugf(logging.NSBuild+"%s: aborting: %v", b.meta.Name, err)
	b.backend.Abort()
}

// locate annotates err with the parser position, when one is available.
func (b *Builder) locate(err error) error {
	if detail := b.parser.Detail(); detail != "" {
		return fmt.Errorf("%w (%s)", err, detail)
	}
	return err
}
