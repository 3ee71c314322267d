// Package project loads and saves timeline project files.
//
// A project file is a YAML state tree holding the output settings and the
// serialized timeline. An open project holds an exclusive lock on
// "<path>.lock" so two editors cannot write the same file.
package project
