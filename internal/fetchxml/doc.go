// Package fetchxml moves FetchXML documents in and out of a query tree.
//
// Parse reads a document and replays it as parse-mode ImportNode calls, so
// every attribute and node goes through its one-time validators. Write
// serializes a tree back to indented FetchXML with attributes in descriptor
// order; empty attributes are omitted.
package fetchxml
