// Package testsupport offers helpers shared by package tests: temp-dir backed
// configs and a history store that closes itself on cleanup.
package testsupport
