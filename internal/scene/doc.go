// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package scene holds the runtime data model of a generated scene: the objects
// placed in one iteration, the persistent camera, and the per-iteration record
// the orchestrator threads through its stages.
//
// # Core Concepts
//
//   - Object: one instance of a model template. It carries a unique name and
//     token, the inline description sent to the simulator, its resolved pose
//     and the local bounding box used to project annotations.
//
//   - Camera: the capture camera. It outlives iterations and is only updated
//     once the simulator has acknowledged a move.
//
//   - Iteration: everything that belongs to a single pass of the pipeline. It
//     is created at the start of an iteration and dropped at the end, whether
//     the iteration succeeded or not.
//
// Why a separate scene package?
//
// Iteration failure must never leak into the next iteration. Keeping all
// per-iteration values in one explicit struct, instead of package-level state,
// makes that isolation a property of the types: the orchestrator builds a new
// Iteration, and a failed one is simply discarded.
package scene
