// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package sim provides a simulated multi-processor [Machine], for running
// and testing interrupt-driven code, such as package xcall, in a regular Go
// process.
package sim
