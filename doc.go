// Package pretree is an XML-native database engine. It materializes a
// document tree as a compact on-disk representation: a fixed-width row
// table in preorder, side files for text and attribute-value payloads,
// name and namespace dictionaries, and a path summary.
//
// A database is created in a single pass over a stream of structural
// events (open/close document, open/empty/close element, text, comment,
// processing instruction) delivered by a Parser. Two build targets share
// the same front-end: Create writes a database directory, CreateMem builds
// entirely in memory. Creation is all-or-nothing; on any failure the
// partial database is dropped.
//
// Basic usage:
//
//	f, _ := os.Open("data.xml")
//	defer f.Close()
//	db, err := pretree.Create("mydb", xmlparse.New(f, "data.xml"), nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
package pretree
