/*
Package text drives a markov.Chain over word tokens.

It splits input text into tokens with a Tokenizer, and turns the chain's
next-state predictions back into readable text by repeatedly feeding each
generated token into the history of the next prediction. Generation can return
a finished string or stream tokens over a channel.
*/
package text
