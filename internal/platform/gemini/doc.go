// Package gemini provides an implementation of the generation.Generator
// interface that uses Google's Gemini API for text correction and
// explanation generation.
//
// This package is an infrastructure adapter in the hexagonal architecture,
// connecting the application's task pipeline to Google's external Gemini AI
// service. It translates between the application's generation parameters and
// the Gemini API without exposing the details of the external service to the
// core application.
//
// Key components:
//
// 1. Generator:
//   - Implements the generation.Generator interface
//   - Handles communication with the Gemini API
//   - Applies per-call sampling parameters (temperature, top-p, top-k,
//     output token limit)
//
// 2. Error Handling:
//   - Implements retry logic with exponential backoff for transient errors
//   - Categorizes and translates API errors to application-specific errors
//   - Handles content filtering and safety measures
//
// The package depends on Google's genai client library for communicating
// with the Gemini API, and handles authentication, request formatting, and
// response processing according to Google's API specifications.
package gemini
