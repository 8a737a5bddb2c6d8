package llm

const extractFactsPrompt = `You are a fact extraction system. Analyze the following conversation excerpt and extract atomic facts about the user.

Known topics in this conversation: %s

Return ONLY a JSON array. Each element:
[
  {
    "text": "uses PostgreSQL for all side projects",
    "type_hint": "tool",
    "attribution": "user_explicit",
    "confidence": 0.9
  }
]

Valid types: identity, company, project, skill, domain, goal, tool, preference, context. Omit "type_hint" when unsure.
Valid attributions:
- "user_explicit": the user stated it directly
- "user_implied": follows clearly from what the user said
- "assistant_suggested": the assistant proposed it and the user did not object
- "ambiguous": unclear who asserted it

RULES:
- Each fact must be a single atomic statement of 3 to 15 words
- Extract only facts about the user, not general knowledge
- confidence reflects how certain the excerpt makes the fact (0.0-1.0)
- Return [] if no facts are present

Conversation excerpt:
%s`

const simplifiedExtractPrompt = `List facts about the user from this text, one per line, plain text, no numbering. Write nothing else.

%s`
