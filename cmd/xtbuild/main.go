// Command xtbuild creates a database from an XML file.
//
// Usage:
//
//	xtbuild -dbpath data -name mydb [-codec snappy] [-v] input.xml
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pretreedb/pretree"
	"github.com/pretreedb/pretree/internal/compress"
	"github.com/pretreedb/pretree/internal/logging"
	"github.com/pretreedb/pretree/internal/xmlparse"
)

func main() {
	dbpath := flag.String("dbpath", "data", "directory databases are created under")
	name := flag.String("name", "", "database name (default: input file base name)")
	codec := flag.String("codec", "none", "token compression: none, snappy, zstd, lz4")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: xtbuild [flags] input.xml")
		flag.PrintDefaults()
		os.Exit(2)
	}
	input := flag.Arg(0)

	ct, err := compress.ParseType(*codec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xtbuild: %v\n", err)
		os.Exit(2)
	}

	dbname := *name
	if dbname == "" {
		base := filepath.Base(input)
		dbname = base[:len(base)-len(filepath.Ext(base))]
	}

	level := logging.LevelWarn
	if *verbose {
		level = logging.LevelDebug
	}

	f, err := os.Open(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xtbuild: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	db, err := pretree.Create(dbname, xmlparse.NewSized(f, filepath.Base(input), size),
		&pretree.Options{
			DBPath:      *dbpath,
			Compression: ct,
			Logger:      logging.NewDefaultLogger(level),
		})
	if err != nil {
		fmt.Fprintf(os.Stderr, "xtbuild: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Printf("%s: %d nodes, %d documents, codec %s\n",
		dbname, db.Size(), db.Meta.NDocs, db.Meta.Codec)
}
