// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model provides the Go struct representation of the scenegrid HCL
// configuration. Its core purpose is to turn the user's scene file into a
// strongly-typed, validated value the application can wire its components
// from.
//
// # Core Concepts
//
//   - Scene: The root of a configuration file. It names the run length, the
//     random seed and the input and output directories, and aggregates every
//     block below.
//
//   - Grid and Objects: The placement surface and how many objects each
//     iteration draws onto it.
//
//   - Camera and Light: The dome regions poses are sampled from. Angles are
//     written in degrees and converted to radians on load.
//
//   - Bus, Index and Simulator: How the generator reaches the external
//     services, where the annotation index lives, and the camera of the
//     in-process loopback services.
//
// Why a separate model package?
//
// HCL decoding needs tagged structs that mirror the file layout, while the
// rest of the program wants plain values with units it can compute with. This
// package owns that translation. Everything downstream works with durations,
// radians and absolute paths, and never sees an HCL type.
//
// The key advantages of this approach are:
//
//  1. Early Validation: The whole configuration is checked once, before any
//     connection is opened, and every problem is reported together.
//
//  2. Single Source of Defaults: Optional blocks fall back to the same values
//     wherever the configuration is consumed.
package model
