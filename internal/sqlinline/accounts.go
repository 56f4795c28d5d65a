package sqlinline

const QInsertAccount = `--sql 128e2632-bb51-40dd-9841-ed287283a62a
insert into accounts (email, password_hash, created_at)
values ($1, $2, $3)
returning id, email, password_hash, created_at;
`

const QSelectAccountByEmail = `--sql 09b4eaa0-5add-494c-9018-1be1ce46c84c
select id, email, password_hash, created_at
from accounts
where email = $1;
`

const QSelectAccountByID = `--sql a199e570-960d-46f0-9f5a-4afd2396ac58
select id, email, password_hash, created_at
from accounts
where id = $1;
`

const QInsertSession = `--sql 76a84c2a-9206-422a-90c4-5babaeee30a7
insert into sessions (token, account_id, created_at)
values ($1, $2, $3);
`

const QSelectSessionByToken = `--sql c23f21b2-773e-4341-88b3-e92d216538fd
select token, account_id, created_at
from sessions
where token = $1;
`
