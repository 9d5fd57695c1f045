// Package videogen animates keyframes into video clips through an
// asynchronous submit/poll/download generation API.
package videogen
