// Package syncengine copies watched state from the source catalog to the
// target catalog.
//
// Engine walks one library section for one user: every watched movie, or
// every show with watched episodes, is joined to the target by provider id
// and marked played. Items that cannot be joined are reported as Outcomes
// with a skip Reason instead of failing the section. Driver fans the engine
// out over users and sections and decides which failures abort a user.
package syncengine
