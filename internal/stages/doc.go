// Package stages implements the seven bodies of the ad generation pipeline
// and the narrow collaborator contracts they depend on.
//
// Build assembles the stage descriptors in execution order, pairing each body
// with its entry and exit gates from package stage. Bodies never mutate the
// job directly: they receive a snapshot, call out to a collaborator, store
// any produced image in the object store under a deterministic key, and
// return the updated artifact set for the executor to record.
package stages
