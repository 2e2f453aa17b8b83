// Package watch feeds a source file on disk to the playground as editor
// changes.
//
// The watcher observes the file's parent directory with fsnotify so that
// editors which save by rename are still picked up. Every write, create or
// rename of the file re-reads it and hands the text to the callback; a read
// failure is delivered as nil, meaning "no change".
package watch
