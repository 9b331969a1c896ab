// Package procutil launches helper processes that must outlive the shell,
// such as the relaunch of a freshly installed build.
package procutil
