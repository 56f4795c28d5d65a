package sqlinline

const QInsertStory = `--sql 299949d8-c5c0-41bc-ab02-48c3e571208c
insert into stories (account_id, title, subject, path, images_dir, page_count, created_at)
values ($1, $2, $3, $4, $5, $6, $7)
returning id;
`

const QListStories = `--sql c0fff516-e4fc-4a6b-9ea1-6b301ed71fcc
select id, account_id, title, subject, path, images_dir, page_count, created_at
from stories
order by created_at desc, id desc
limit $1;
`

const QListStoriesByAccount = `--sql aa495457-b942-47d3-a43a-1fc1e2e90d8c
select id, account_id, title, subject, path, images_dir, page_count, created_at
from stories
where account_id = $1
order by created_at desc, id desc
limit $2;
`

const QSelectStoryByID = `--sql ef5e63d9-6015-4f41-ba48-39ece95d402d
select id, account_id, title, subject, path, images_dir, page_count, created_at
from stories
where id = $1;
`
