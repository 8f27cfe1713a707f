package pretree

import (
	"fmt"

	"github.com/pretreedb/pretree/internal/table"
)

// nodeSource is the read access replay needs; both database handles
// implement it.
type nodeSource interface {
	rows() int
	row(pre int) (table.Row, error)
	token(ref uint64, isText bool) ([]byte, error)
	elemName(id int) []byte
	attrName(id int) []byte
}

// replay walks the table in preorder and re-emits the event stream that
// built it. An element whose subtree holds only its attribute rows is
// emitted as an empty element; rebuilding such a stream yields the same
// rows, since an unpatched empty element already carries its size.
func replay(src nodeSource, e Events) error {
	for pre := 0; pre < src.rows(); {
		row, err := src.row(pre)
		if err != nil {
			return err
		}
		if row.Kind() != table.Doc {
			return fmt.Errorf("pretree: row %d: expected document, found %v", pre, row.Kind())
		}
		next, err := replayNode(src, e, pre)
		if err != nil {
			return err
		}
		pre = next
	}
	return nil
}

func replayNode(src nodeSource, e Events, pre int) (int, error) {
	row, err := src.row(pre)
	if err != nil {
		return 0, err
	}

	switch row.Kind() {
	case table.Doc:
		name, err := src.token(row.Ref(), true)
		if err != nil {
			return 0, err
		}
		if err := e.OpenDoc(name); err != nil {
			return 0, err
		}
		end := pre + int(row.Size())
		if err := replayChildren(src, e, pre+1, end); err != nil {
			return 0, err
		}
		return end, e.CloseDoc()

	case table.Elem:
		name := src.elemName(row.NameID())
		end := pre + int(row.Size())

		// Attribute rows directly follow their element.
		var atts []Attr
		cur := pre + 1
		for cur < end {
			arow, err := src.row(cur)
			if err != nil {
				return 0, err
			}
			if arow.Kind() != table.Attr {
				break
			}
			value, err := src.token(arow.Ref(), false)
			if err != nil {
				return 0, err
			}
			atts = append(atts, Attr{Name: src.attrName(arow.NameID()), Value: value})
			cur++
		}

		if cur == end {
			return end, e.EmptyElem(name, atts, nil)
		}
		if err := e.OpenElem(name, atts, nil); err != nil {
			return 0, err
		}
		if err := replayChildren(src, e, cur, end); err != nil {
			return 0, err
		}
		return end, e.CloseElem()

	case table.Text, table.Comm, table.PI:
		value, err := src.token(row.Ref(), true)
		if err != nil {
			return 0, err
		}
		switch row.Kind() {
		case table.Text:
			err = e.Text(value)
		case table.Comm:
			err = e.Comment(value)
		default:
			err = e.PI(value)
		}
		return pre + 1, err

	default:
		return 0, fmt.Errorf("pretree: row %d: unexpected %v outside an element", pre, row.Kind())
	}
}

func replayChildren(src nodeSource, e Events, from, to int) error {
	for pre := from; pre < to; {
		next, err := replayNode(src, e, pre)
		if err != nil {
			return err
		}
		pre = next
	}
	return nil
}
