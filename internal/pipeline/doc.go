// Package pipeline runs one ingestion pass over every configured source.
//
// States, strictly forward:
//
//	FETCH_EVENTS -> FETCH_MARKETS -> NORMALIZE -> AGGREGATE -> RANK
//	  -> WRITE_PARENTS -> WRITE_CHILDREN -> DONE
//
// Every state produces a possibly partial result and the run always reaches
// DONE. The only cross-run state is the store.
package pipeline
