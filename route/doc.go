// Package route holds the static route table: descriptors, path matching
// with :param segments and a catch-all, and YAML loading.
package route
