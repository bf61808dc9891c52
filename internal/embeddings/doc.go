// Package embeddings turns text into fixed-length dense vectors.
//
// Providers:
//   - fastembed: local ONNX inference through fastembed-go (requires cgo and
//     the ONNX runtime library, located via ONNX_PATH).
//   - tei: a HuggingFace text-embeddings-inference server over HTTP.
//   - openai: any OpenAI-compatible embeddings endpoint through langchaingo.
//   - hash: model-free feature hashing, deterministic and offline.
//
// NewProvider wraps every provider so that calls are measured and every
// returned vector is checked against the provider's dimension.
package embeddings
