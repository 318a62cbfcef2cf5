// Package intake turns user input into image paths for the pipeline.
//
// ParseDropList decodes the file list delivered by a desktop drag-and-drop
// event, and FirstDropped picks the one path that is processed. DropFolder
// watches a directory with fsnotify and submits every image that lands in
// it, which gives headless setups the same drop-to-extract workflow.
package intake
