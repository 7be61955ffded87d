// Package flow provides the minimal generic vocabulary the workflow
// engine builds its stage graph on: a typed Node that transforms input
// to output.
//
//	type Node[I any, O any] interface {
//	    Run(ctx context.Context, input I) (O, error)
//	}
//
// workflow.Node embeds it to constrain every Planner/Retriever/Extractor/
// Writer/Critic stage to the same SessionState-in, StagePatch-out shape.
package flow
