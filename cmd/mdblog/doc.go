// Copyright (c) 2012-2020 Ugorji Nwoke. All rights reserved.
// Use of this source code is governed by a MIT license found in the LICENSE file.

// mdblog is a small static site generator for a tree of markdown files.
//
// Every *.markdown file becomes an HTML page rendered through
// templates/article.html, and every directory gets an index.html, rendered
// through templates/list.html, listing its articles most recent first.
// The first line of each markdown file is its title. A title.txt file in a
// directory names its listing.
//
// Usage:
//   mdblog                  generate markdown/ into blog/
//   mdblog serve [port]     preview blog/ on http://localhost:8000
//   mdblog serve -w         preview and regenerate on change
//
// The templates directory holds html/template files. A pongo2 set with the
// same two names lives in templates/pongo2; select it with
//   template_engine: pongo2
//   template_dir: templates/pongo2
package main
