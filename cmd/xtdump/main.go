// Command xtdump prints the rows of a built database and verifies its
// side-file checksums.
//
// Usage:
//
//	xtdump -dbpath data mydb
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pretreedb/pretree"
	"github.com/pretreedb/pretree/internal/table"
)

func main() {
	dbpath := flag.String("dbpath", "data", "directory databases live under")
	rows := flag.Bool("rows", true, "print table rows")
	paths := flag.Bool("paths", false, "print the path summary")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: xtdump [flags] dbname")
		flag.PrintDefaults()
		os.Exit(2)
	}

	db, err := pretree.Open(flag.Arg(0), &pretree.Options{DBPath: *dbpath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "xtdump: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	m := db.Meta
	fmt.Printf("name=%s size=%d ndocs=%d lastid=%d encoding=%s codec=%s\n",
		m.Name, m.Size, m.NDocs, m.LastID, m.Encoding, m.Codec)

	if err := db.VerifyChecksums(); err != nil {
		fmt.Fprintf(os.Stderr, "xtdump: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("side-file checksums ok")

	if *rows {
		if err := dumpRows(db); err != nil {
			fmt.Fprintf(os.Stderr, "xtdump: %v\n", err)
			os.Exit(1)
		}
	}
	if *paths {
		dumpPaths(db)
	}
}

func dumpRows(db *pretree.Database) error {
	for pre := 0; pre < db.Size(); pre++ {
		row, err := db.Row(pre)
		if err != nil {
			return err
		}
		fmt.Printf("%6d  %-4s dist=%-6d size=%-6d", pre, row.Kind(), row.Dist(), row.Size())
		switch row.Kind() {
		case table.Elem:
			name, err := db.Name(pre)
			if err != nil {
				return err
			}
			fmt.Printf(" name=%s asize=%d uri=%d", name, row.ASize(), row.URIID())
			if row.NSFlag() {
				fmt.Print(" xmlns")
			}
		case table.Attr:
			name, err := db.Name(pre)
			if err != nil {
				return err
			}
			value, err := db.Text(pre)
			if err != nil {
				return err
			}
			fmt.Printf(" name=%s value=%q uri=%d", name, value, row.URIID())
		default:
			value, err := db.Text(pre)
			if err != nil {
				return err
			}
			fmt.Printf(" value=%q", clip(value))
			if table.IsInline(row.Ref()) {
				fmt.Print(" (inlined)")
			} else if table.IsCompressed(row.Ref()) {
				fmt.Print(" (compressed)")
			}
		}
		fmt.Println()
	}
	return nil
}

func dumpPaths(db *pretree.Database) {
	fmt.Println("distinct paths:")
	for _, n := range db.Paths.Nodes() {
		fmt.Printf("  depth=%-3d %-4s name=%-5d count=%d\n", n.Depth, n.Kind, n.NameID, n.Count)
	}
}

func clip(b []byte) []byte {
	const limit = 40
	if len(b) <= limit {
		return b
	}
	return append(append([]byte(nil), b[:limit]...), "..."...)
}
