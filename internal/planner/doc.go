// Package planner generates migration plan documents from the live state of
// the source host and CI platform. The generated file is meant to be
// reviewed, edited where needed, and then executed with the migrate command.
package planner
