package agent

// contextPromptTemplate wraps recent conversation lines around the actual
// question. The model is told the context is optional so stale chatter does
// not leak into unrelated answers.
const contextPromptTemplate = `Here are recent messages from this conversation. Use them only if they are relevant to the question below; otherwise ignore them.

%s

The question to answer:
%s`
