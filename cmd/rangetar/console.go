//go:build !windows

package main

func holdConsole() {}
