package main

const configTemplate = `# {{ index .Help "model" }}
model: stable_diffusion
# {{ index .Help "width" }}
width: 384
# {{ index .Help "height" }}
height: 384
# {{ index .Help "steps" }}
steps: 25
# {{ index .Help "cfg-scale" }}
cfg-scale: 6.3
# {{ index .Help "count" }}
count: 1
# {{ index .Help "nsfw" }}
nsfw: false
# {{ index .Help "censor-nsfw" }}
censor-nsfw: true
# {{ index .Help "max-wait" }}
max-wait: 3m
# {{ index .Help "output" }}
# output: .
# {{ index .Help "api-key-env" }}
# Get a key for free at https://aihorde.net/register; anonymous users
# are served last in the queue.
api-key-env: AIHORDE_API_KEY
# {{ index .Help "fanciness" }}
fanciness: 10
# {{ index .Help "status-text" }}
status-text: Generating
# {{ index .Help "quiet" }}
quiet: false
# {{ index .Help "no-cache" }}
no-cache: false
# {{ index .Help "no-history" }}
no-history: false
# {{ index .Help "cache-path" }}
# cache-path:
`
